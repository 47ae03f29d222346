package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/auth"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/browser"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/config"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/datefilter"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/library"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/report"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/rodbrowser"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/runner"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/sessionlog"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/trigger"
)

const (
	driverChromedp = "chromedp"
	driverRod      = "rod"
)

// session is a running browser the row loop can drive.
type session interface {
	dom.Driver
	ConfigureDownloads(ctx context.Context, downloadDir string) error
	Close()
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	if f.marketplace != "" {
		cfg.Marketplace = f.marketplace
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// browserConfig resolves the executable, profile and download paths.
func browserConfig(f *flags, log *zap.SugaredLogger) (browser.Config, error) {
	cfg := browser.DefaultConfig()
	cfg.Headless = f.headless

	cfg.ExecPath = f.execPath
	if cfg.ExecPath == "" {
		cfg.ExecPath = browser.DetectBrowser()
		if cfg.ExecPath == "" && f.driver == driverChromedp {
			return cfg, errors.New("could not find Chrome/Chromium, install one or pass --exec")
		}
		if cfg.ExecPath != "" {
			log.Infof("✓ Auto-detected browser: %s", cfg.ExecPath)
		}
	}

	cfg.ProfilePath = config.ExpandHome(f.profile)
	if cfg.ProfilePath == "" {
		cfg.ProfilePath = browser.DefaultProfilePath()
	}

	cfg.DownloadDir = config.ExpandHome(f.downloadDir)
	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		return cfg, fmt.Errorf("creating download directory: %w", err)
	}
	return cfg, nil
}

func openSession(ctx context.Context, driver string, cfg browser.Config, log *zap.SugaredLogger) (session, error) {
	switch driver {
	case driverChromedp:
		c, err := browser.New(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case driverRod:
		b, err := rodbrowser.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown driver %q (use %s or %s)", driver, driverChromedp, driverRod)
	}
}

// prepare starts the browser on the content list and waits for sign-in.
func prepare(ctx context.Context, f *flags, cfg *config.Config, log *zap.SugaredLogger) (session, error) {
	bcfg, err := browserConfig(f, log)
	if err != nil {
		return nil, err
	}

	log.Info("=== Kindle Bulk Downloader ===")
	log.Infof("Driver: %s", f.driver)
	log.Infof("Executable: %s", bcfg.ExecPath)
	log.Infof("Profile: %s", bcfg.ProfilePath)
	log.Infof("Download: %s", bcfg.DownloadDir)

	s, err := openSession(ctx, f.driver, bcfg, log)
	if err != nil {
		return nil, err
	}

	log.Infof("Opening %s...", cfg.ContentURL())
	if err := s.Navigate(ctx, cfg.ContentURL()); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.ConfigureDownloads(ctx, bcfg.DownloadDir); err != nil {
		log.Warnf("⚠️ Could not configure download directory: %v", err)
	}

	w := auth.Waiter{
		Interval: cfg.Timeouts.LoginCheckInterval,
		Timeout:  cfg.Timeouts.LoginTimeout,
		Log:      log,
	}
	if err := w.EnsureLoggedIn(ctx, s); err != nil {
		s.Close()
		return nil, err
	}
	// Sign-in may land on another page.
	if !cfg.IsContentList(currentURL(ctx, s)) {
		if err := s.Navigate(ctx, cfg.ContentURL()); err != nil {
			log.Warnf("Could not navigate after login: %v", err)
		}
	}
	log.Info("✓ User is logged in")
	return s, nil
}

func currentURL(ctx context.Context, d dom.Driver) string {
	u, _ := d.Location(ctx)
	return u
}

// newLogger returns the console logger and its in-memory session log.
func newLogger(f *flags) (*zap.Logger, *sessionlog.Log) {
	return sessionlog.New(os.Stderr, f.verbose)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runDownload is the full bulk transfer: open the content list, wait for the
// trigger, then walk every page.
func runDownload(parent context.Context, f *flags) error {
	logger, sessLog := newLogger(f)
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	cfg, err := loadConfig(f)
	if err != nil {
		log.Errorf("Error: %v", err)
		return err
	}
	filter, err := datefilter.NewDateRange(f.from, f.to)
	if err != nil {
		log.Errorf("Error: %v", err)
		return err
	}
	if filter.Enabled {
		log.Infof("Date filter: %s", filter)
	}

	ctx, stop := signalContext(parent)
	defer stop()

	s, err := prepare(ctx, f, cfg, log)
	if err != nil {
		return finish(ctx, log, browser.Classify(ctx, err))
	}
	defer s.Close()

	if !f.auto {
		b := trigger.Button{
			Poll:    cfg.Timeouts.TriggerPoll,
			Matches: cfg.IsContentList,
			Log:     log,
		}
		if err := b.Wait(ctx, s); err != nil {
			return finish(ctx, log, browser.Classify(ctx, err))
		}
	}

	stats := report.New()
	r := runner.New(s, cfg, log, stats, runner.Options{
		Limit:    f.limit,
		MaxPages: f.maxPages,
		Filter:   filter,
	})
	runErr := browser.Classify(ctx, r.Run(ctx))
	stats.Finish()
	stats.Warnings = sessLog.Warnings()

	stats.Print(os.Stdout)
	log.Info(stats.Summary())
	saveLog(f, sessLog, log)

	if runErr != nil {
		return finish(ctx, log, runErr)
	}

	if !f.closeEnd {
		log.Info("Browser remains open so pending downloads can finish. Press Ctrl+C to exit.")
		<-ctx.Done()
	}
	return nil
}

// runScan walks the list without clicking any row control and writes one
// JSON object per book to out.
func runScan(parent context.Context, f *flags, out io.Writer) error {
	logger, sessLog := newLogger(f)
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	cfg, err := loadConfig(f)
	if err != nil {
		log.Errorf("Error: %v", err)
		return err
	}

	ctx, stop := signalContext(parent)
	defer stop()

	s, err := prepare(ctx, f, cfg, log)
	if err != nil {
		return finish(ctx, log, browser.Classify(ctx, err))
	}
	defer s.Close()

	enc := json.NewEncoder(out)
	var encErr error
	stats := report.New()
	r := runner.New(s, cfg, log, stats, runner.Options{
		MaxPages: f.maxPages,
		DryRun:   true,
		OnRow: func(row library.Row) {
			if encErr == nil {
				encErr = enc.Encode(row)
			}
		},
	})
	runErr := browser.Classify(ctx, r.Run(ctx))
	stats.Finish()
	log.Info(stats.Summary())
	saveLog(f, sessLog, log)

	if encErr != nil {
		return fmt.Errorf("writing rows: %w", encErr)
	}
	return finish(ctx, log, runErr)
}

// finish logs err and turns an interrupt into a clean exit.
func finish(ctx context.Context, log *zap.SugaredLogger, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		log.Info("Interrupted.")
		return nil
	}
	log.Errorf("Error: %v", err)
	return err
}

func saveLog(f *flags, sessLog *sessionlog.Log, log *zap.SugaredLogger) {
	if f.logFile == "" {
		return
	}
	path := config.ExpandHome(f.logFile)
	if err := sessLog.Save(path); err != nil {
		log.Warnf("Could not save the session log: %v", err)
		return
	}
	log.Infof("Session log saved to %s", path)
}
