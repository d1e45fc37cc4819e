package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

type PlaywrightEngine struct {
	opts   *Options
	logger *slog.Logger
}

func NewPlaywrightEngine(opts *Options, logger *slog.Logger) *PlaywrightEngine {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &PlaywrightEngine{
		opts:   opts,
		logger: logger.With("component", "playwright"),
	}
}

func (e *PlaywrightEngine) Name() string { return "playwright" }

func (e *PlaywrightEngine) Launch(ctx context.Context) (Session, error) {
	opts := e.opts

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
			"--user-agent=" + opts.UserAgent,
		},
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
	}
	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: opts.headers(),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if err := ctx.Err(); err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return nil, err
	}

	return &playwrightSession{
		pw:      pw,
		browser: browser,
		context: bctx,
		timeout: opts.Timeout,
		logger:  e.logger,
	}, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	timeout time.Duration
	logger  *slog.Logger
}

func (s *playwrightSession) Open(ctx context.Context, url string, settle time.Duration) (string, error) {
	page, err := s.context.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create new page: %w", err)
	}
	defer page.Close()

	page.SetDefaultTimeout(float64(s.timeout.Milliseconds()))

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	s.humanize(page)

	if err := sleepCtx(ctx, settle); err != nil {
		return "", err
	}

	title, err := page.Title()
	if err != nil {
		return "", fmt.Errorf("failed to get page title: %w", err)
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}

	if isChallengePage(title, content) {
		s.logger.Warn("bot challenge detected", "url", url, "title", title)
		return "", ErrBotChallenge
	}

	s.logger.Debug("page rendered", "url", url, "bytes", len(content))
	return content, nil
}

// humanize moves the mouse and scrolls so lazy listing cards render.
func (s *playwrightSession) humanize(page playwright.Page) {
	for i := 0; i < 3; i++ {
		_ = page.Mouse().Move(float64(100+i*200), float64(100+i*150))
		time.Sleep(time.Millisecond * time.Duration(100+i*50))
	}
	if _, err := page.Evaluate(`window.scrollBy(0, document.body.scrollHeight / 2)`); err != nil {
		s.logger.Debug("scroll failed", "error", err)
	}
}

func (s *playwrightSession) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}
