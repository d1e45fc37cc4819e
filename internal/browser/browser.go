package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/digikala-search/internal/metrics"
)

var (
	ErrBotChallenge  = errors.New("bot challenge page served")
	ErrNoEngine      = errors.New("no browser engine could be started")
	ErrSessionClosed = errors.New("browser session closed")
)

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	ExecutablePath string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "fa,en-US;q=0.7,en;q=0.3",
		TimezoneID:     "Asia/Tehran",
		Locale:         "fa-IR",
		ExtraHeaders: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"DNT":                       "1",
			"Upgrade-Insecure-Requests": "1",
		},
	}
}

// headers merges ExtraHeaders with Accept-Language.
func (o *Options) headers() map[string]string {
	h := make(map[string]string, len(o.ExtraHeaders)+1)
	for k, v := range o.ExtraHeaders {
		h[k] = v
	}
	if o.AcceptLanguage != "" {
		h["Accept-Language"] = o.AcceptLanguage
	}
	return h
}

// Session is a running browser owned by a single caller.
type Session interface {
	// Open navigates to url, waits settle for client-side rendering and
	// returns the rendered markup.
	Open(ctx context.Context, url string, settle time.Duration) (string, error)
	Close() error
}

type Engine interface {
	Name() string
	Launch(ctx context.Context) (Session, error)
}

// Launcher starts sessions on the first engine that comes up.
type Launcher struct {
	engines []Engine
	logger  *slog.Logger
}

func NewLauncher(logger *slog.Logger, engines ...Engine) *Launcher {
	return &Launcher{
		engines: engines,
		logger:  logger.With("component", "browser"),
	}
}

// WithSession runs fn with a fresh session. The session is closed when fn
// returns or ctx is cancelled, whichever happens first.
func (l *Launcher) WithSession(ctx context.Context, fn func(Session) error) error {
	sess, engine, err := l.launch(ctx)
	if err != nil {
		return err
	}

	closer := &onceSession{Session: sess}
	done := make(chan struct{})
	defer func() {
		close(done)
		if err := closer.Close(); err != nil {
			l.logger.Warn("failed to close browser session", "engine", engine, "error", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = closer.Close()
		case <-done:
		}
	}()

	return fn(closer)
}

func (l *Launcher) launch(ctx context.Context) (Session, string, error) {
	var lastErr error
	for _, engine := range l.engines {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		sess, err := engine.Launch(ctx)
		if err != nil {
			metrics.BrowserSessionsTotal.WithLabelValues(engine.Name(), "error").Inc()
			l.logger.Warn("browser engine failed to start", "engine", engine.Name(), "error", err)
			lastErr = err
			continue
		}

		metrics.BrowserSessionsTotal.WithLabelValues(engine.Name(), "ok").Inc()
		return sess, engine.Name(), nil
	}

	if lastErr == nil {
		return nil, "", ErrNoEngine
	}
	return nil, "", fmt.Errorf("%w: %w", ErrNoEngine, lastErr)
}

// onceSession makes Close idempotent and safe to call from the cancel watcher.
type onceSession struct {
	Session
	once   sync.Once
	mu     sync.Mutex
	closed bool
	err    error
}

func (s *onceSession) Open(ctx context.Context, url string, settle time.Duration) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", ErrSessionClosed
	}
	return s.Session.Open(ctx, url, settle)
}

func (s *onceSession) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.err = s.Session.Close()
	})
	return s.err
}

var challengeMarkers = []string{
	"captcha",
	"cf-challenge",
	"challenge-platform",
	"just a moment",
	"access denied",
	"arvancloud",
	"are you a robot",
	"لطفا صبر کنید",
	"دسترسی شما مسدود",
}

// isChallengePage reports whether a page looks like an anti-bot interstitial
// rather than a storefront page.
func isChallengePage(title, content string) bool {
	title = strings.ToLower(title)
	for _, marker := range challengeMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}

	// Real listing pages are large; interstitials are small and say so.
	if len(content) > 200_000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
