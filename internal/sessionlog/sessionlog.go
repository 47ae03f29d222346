// Package sessionlog keeps an append-only, in-memory record of every message
// logged during a session, next to the console output.
package sessionlog

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// WarnPrefix marks warnings and errors in the session log.
const WarnPrefix = "WARN: "

// Log is the append-only message list. Its order is the order in which
// messages were logged.
type Log struct {
	mu      sync.Mutex
	entries []string
}

// Append adds one message.
func (l *Log) Append(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, msg)
}

// Entries returns a copy of all messages.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Warnings returns the messages logged at warn level or above.
func (l *Log) Warnings() []string {
	var out []string
	for _, e := range l.Entries() {
		if strings.HasPrefix(e, WarnPrefix) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// WriteTo writes one message per line.
func (l *Log) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, e := range l.Entries() {
		m, err := fmt.Fprintln(w, e)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Save writes the log to path.
func (l *Log) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating session log: %w", err)
	}
	if _, err := l.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing session log: %w", err)
	}
	return f.Close()
}

// core is a zapcore.Core that appends to a Log. Debug messages are
// diagnostics and are not kept.
type core struct {
	log    *Log
	fields []zapcore.Field
}

// NewCore returns a core recording info-and-above messages into log.
func NewCore(log *Log) zapcore.Core {
	return &core{log: log}
}

func (c *core) Enabled(lvl zapcore.Level) bool {
	return lvl >= zapcore.InfoLevel
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	return &core{
		log:    c.log,
		fields: append(append([]zapcore.Field(nil), c.fields...), fields...),
	}
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	msg := ent.Message
	if extra := encodeFields(append(append([]zapcore.Field(nil), c.fields...), fields...)); extra != "" {
		msg += " " + extra
	}
	if ent.Level >= zapcore.WarnLevel {
		msg = WarnPrefix + msg
	}
	c.log.Append(msg)
	return nil
}

func (c *core) Sync() error {
	return nil
}

// encodeFields renders fields as sorted key=value pairs.
func encodeFields(fields []zapcore.Field) string {
	if len(fields) == 0 {
		return ""
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, enc.Fields[k]))
	}
	return strings.Join(parts, " ")
}

// New builds the session logger: human-readable console output on w, teed
// with the in-memory Log. verbose enables debug output on the console.
func New(w io.Writer, verbose bool) (*zap.Logger, *Log) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeCaller = nil
	encCfg.CallerKey = ""

	console := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)

	log := &Log{}
	return zap.New(zapcore.NewTee(console, NewCore(log))), log
}
