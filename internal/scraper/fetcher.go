package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/maltedev/digikala-search/internal/browser"
	"github.com/maltedev/digikala-search/internal/metrics"
	"github.com/maltedev/digikala-search/internal/models"
	"github.com/maltedev/digikala-search/internal/parser"
	"github.com/maltedev/digikala-search/internal/ratelimit"
)

// Fetcher walks the search page, the category page and the mobile site in
// order and stops at the first attempt that yields products.
type Fetcher struct {
	sessions   SessionProvider
	extractor  parser.Parser
	strategies []parser.ContainerStrategy
	limiter    ratelimit.RateLimiter
	opts       Options
	logger     *slog.Logger
}

type attempt struct {
	name   string
	url    string
	settle time.Duration
}

func NewFetcher(sessions SessionProvider, extractor parser.Parser, limiter ratelimit.RateLimiter, opts Options, logger *slog.Logger) *Fetcher {
	defaults := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = defaults.BaseURL
	}
	if opts.MobileURL == "" {
		opts.MobileURL = defaults.MobileURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	opts.MobileURL = strings.TrimRight(opts.MobileURL, "/")

	return &Fetcher{
		sessions:  sessions,
		extractor: extractor,
		limiter:   limiter,
		opts:      opts,
		logger:    logger.With("component", "fetcher"),
	}
}

// WithStrategies replaces the container strategies passed to the extractor.
func (f *Fetcher) WithStrategies(strategies []parser.ContainerStrategy) *Fetcher {
	f.strategies = strategies
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, term string, limit int) []models.Product {
	term = strings.TrimSpace(term)
	if term == "" || limit <= 0 {
		return nil
	}

	var products []models.Product
	err := f.sessions.WithSession(ctx, func(sess browser.Session) error {
		for _, a := range f.attempts(term) {
			if err := ctx.Err(); err != nil {
				return err
			}

			found, err := f.try(ctx, sess, a, limit)
			if err != nil {
				f.logger.Info("attempt yielded nothing", "attempt", a.name, "term", term, "error", err)
				continue
			}

			f.logger.Info("attempt succeeded", "attempt", a.name, "term", term, "products", len(found))
			products = found
			return nil
		}
		return nil
	})
	if err != nil {
		f.logger.Warn("fetch ended early", "term", term, "error", err)
	}

	return products
}

func (f *Fetcher) attempts(term string) []attempt {
	q := url.QueryEscape(term)

	attempts := []attempt{{
		name:   "search",
		url:    f.opts.BaseURL + "/search/?q=" + q,
		settle: f.opts.SearchSettle,
	}}

	if path, ok := categoryPath(term); ok {
		attempts = append(attempts, attempt{
			name:   "category",
			url:    f.opts.BaseURL + path,
			settle: f.opts.SearchSettle,
		})
	}

	return append(attempts, attempt{
		name:   "mobile",
		url:    f.opts.MobileURL + "/search/?q=" + q,
		settle: f.opts.MobileSettle,
	})
}

// try runs a single attempt. Any failure is reported as an error and the
// caller moves on.
func (f *Fetcher) try(ctx context.Context, sess browser.Session, a attempt, limit int) (products []models.Product, err error) {
	defer func() {
		metrics.FetchAttemptsTotal.WithLabelValues(a.name, outcome(err)).Inc()
		f.feedback(err)
	}()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	html, err := sess.Open(ctx, a.url, a.settle)
	if err != nil {
		if errors.Is(err, browser.ErrBotChallenge) {
			return nil, fmt.Errorf("%w: %s", ErrBlocked, a.url)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrNavigation, a.url, err)
	}

	products, err = f.extractor.Extract(html, f.strategies, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to extract products from %s: %w", a.url, err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrNoProducts, a.url, len(html))
	}

	return products, nil
}

func (f *Fetcher) feedback(err error) {
	fb, ok := f.limiter.(ratelimit.Feedback)
	if !ok {
		return
	}
	switch {
	case err == nil, errors.Is(err, ErrNoProducts):
		fb.RecordSuccess()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		fb.RecordError()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoProducts):
		return "empty"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
