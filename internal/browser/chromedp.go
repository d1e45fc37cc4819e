package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromedpEngine drives a local Chrome over the DevTools protocol. It needs
// no driver download, which makes it the fallback when Playwright cannot
// start.
type ChromedpEngine struct {
	opts   *Options
	logger *slog.Logger
}

func NewChromedpEngine(opts *Options, logger *slog.Logger) *ChromedpEngine {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &ChromedpEngine{
		opts:   opts,
		logger: logger.With("component", "chromedp"),
	}
}

func (e *ChromedpEngine) Name() string { return "chromedp" }

func (e *ChromedpEngine) Launch(ctx context.Context) (Session, error) {
	opts := e.opts

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", opts.Locale),
		chromedp.NoSandbox,
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)
	if opts.ExecutablePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecutablePath))
	}
	if opts.ProxyServer != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyServer))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &chromedpSession{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		headers:       opts.headers(),
		timeout:       opts.Timeout,
		logger:        e.logger,
	}, nil
}

type chromedpSession struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	headers       map[string]string
	timeout       time.Duration
	logger        *slog.Logger
}

func (s *chromedpSession) Open(ctx context.Context, url string, settle time.Duration) (string, error) {
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	defer cancel()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.timeout+settle)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	headers := make(network.Headers, len(s.headers))
	for k, v := range s.headers {
		headers[k] = v
	}

	var title, html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(url),
		chromedp.Sleep(settle),
		chromedp.Evaluate(`window.scrollBy(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to get page content: %w", err)
	}

	if isChallengePage(title, html) {
		s.logger.Warn("bot challenge detected", "url", url, "title", title)
		return "", ErrBotChallenge
	}

	s.logger.Debug("page rendered", "url", url, "bytes", len(html))
	return html, nil
}

func (s *chromedpSession) Close() error {
	err := chromedp.Cancel(s.browserCtx)
	s.browserCancel()
	s.allocCancel()
	if err != nil {
		return fmt.Errorf("failed to close chrome: %w", err)
	}
	return nil
}
