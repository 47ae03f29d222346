package browser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBrowserClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, true},
		{"wrapped deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), false},
		{"deadline text", errors.New("wait: context deadline exceeded"), false},
		{"websocket", errors.New("websocket: close 1006 (abnormal closure)"), true},
		{"target", errors.New("Target closed"), true},
		{"sentinel", fmt.Errorf("x: %w", ErrBrowserClosed), true},
		{"other", errors.New("could not find node"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBrowserClosed(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, Classify(ctx, nil))

	err := Classify(ctx, errors.New("websocket: close sent"))
	assert.ErrorIs(t, err, ErrBrowserClosed)

	plain := errors.New("invalid selector")
	assert.Equal(t, plain, Classify(ctx, plain))

	slow := fmt.Errorf("reading page HTML: %w", context.DeadlineExceeded)
	err = Classify(ctx, slow)
	assert.NotErrorIs(t, err, ErrBrowserClosed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, context.Canceled, Classify(cancelled, errors.New("websocket: close sent")))
}

func TestCandidates(t *testing.T) {
	linux := candidates("linux")
	assert.Equal(t, "/usr/bin/google-chrome", linux[0])

	for _, p := range candidates("darwin") {
		assert.True(t, strings.Contains(p, ".app/Contents/MacOS/"), p)
	}
}

func TestDefaultProfilePath(t *testing.T) {
	p := DefaultProfilePath()
	if p == "" {
		t.Skip("no config directory in this environment")
	}
	assert.Equal(t, profileDirName, filepath.Base(p))
}
