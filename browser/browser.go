// Package browser implements the dynamic retrieval path: a shared headless
// Chrome process with per-request isolated incognito contexts.
package browser

import (
	"log/slog"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/sreekar9601/getcovered-technical-task/config"
	"github.com/sreekar9601/getcovered-technical-task/models"
)

// Browser manages the headless Chrome lifecycle and bounds concurrent
// renders. It is safe for concurrent use and implements fetcher.Fetcher.
type Browser struct {
	browser *rod.Browser
	cfg     config.BrowserConfig
	slots   chan struct{}
	active  atomic.Int32
}

// New launches a headless browser and prepares the concurrency bound.
func New(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeRender, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewDetectError(models.ErrCodeRender, "failed to connect to browser", err)
	}

	maxContexts := cfg.MaxContexts
	if maxContexts <= 0 {
		maxContexts = 10
	}

	return &Browser{
		browser: b,
		cfg:     cfg,
		slots:   make(chan struct{}, maxContexts),
	}, nil
}

func (b *Browser) Name() string { return "dynamic" }

// Stats returns a snapshot of context utilisation.
func (b *Browser) Stats() models.BrowserStats {
	return models.BrowserStats{
		MaxContexts:    cap(b.slots),
		ActiveContexts: int(b.active.Load()),
	}
}

// Close kills the browser process. Call on graceful shutdown to prevent
// zombie Chrome processes.
func (b *Browser) Close() {
	slog.Info("browser shutting down")
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
}
