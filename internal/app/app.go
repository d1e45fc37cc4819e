// Package app wires the search pipeline from configuration. Both the HTTP
// server and the CLI build their service here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/digikala-search/internal/browser"
	"github.com/maltedev/digikala-search/internal/config"
	"github.com/maltedev/digikala-search/internal/expander"
	"github.com/maltedev/digikala-search/internal/llm"
	"github.com/maltedev/digikala-search/internal/parser"
	"github.com/maltedev/digikala-search/internal/ratelimit"
	"github.com/maltedev/digikala-search/internal/scraper"
	"github.com/maltedev/digikala-search/internal/search"
)

var ErrUnknownEngine = errors.New("unknown browser engine")

type App struct {
	Search  *search.Service
	closers []io.Closer
	logger  *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	opts := BrowserOptions(cfg)
	engines, err := Engines(cfg.Browser.Engines, opts, logger)
	if err != nil {
		return nil, err
	}
	launcher := browser.NewLauncher(logger, engines...)

	extractor, err := parser.NewExtractor(cfg.Site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	var strategies []parser.ContainerStrategy
	if len(cfg.Scraper.ContainerSelectors) > 0 {
		if strategies, err = parser.WithCustomSelectors(cfg.Scraper.ContainerSelectors); err != nil {
			return nil, err
		}
	}

	limiter := a.limiter(cfg)

	fetcher := scraper.NewFetcher(launcher, extractor, limiter, scraper.Options{
		BaseURL:      cfg.Site.BaseURL,
		MobileURL:    cfg.Site.MobileURL,
		SearchSettle: cfg.Scraper.SearchSettle,
		MobileSettle: cfg.Scraper.MobileSettle,
	}, logger).WithStrategies(strategies)

	completer, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		// Expansion still works rule-based without a completer.
		logger.Warn("completion collaborator unavailable", "provider", cfg.LLM.Provider, "error", err)
		completer = nil
	}
	if c, ok := completer.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	exp := expander.New(completer, logger, expander.WithTimeout(cfg.LLM.ExpansionTimeout))

	a.Search = search.NewService(exp, fetcher, search.Options{
		Concurrency: cfg.Scraper.SearchConcurrency,
		Weights:     Weights(cfg.Ranking),
	}, logger)

	logger.Info("search pipeline ready",
		"engines", cfg.Browser.Engines,
		"ai_expansion", exp.AIEnabled(),
		"concurrency", cfg.Scraper.SearchConcurrency,
		"shared_rate_limit", cfg.Redis.Addr != "",
	)

	return a, nil
}

// Close releases the completion client and the Redis connection.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) limiter(cfg *config.Config) ratelimit.RateLimiter {
	local := ratelimit.Chain{
		ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax),
		ratelimit.NewTokenBucketRateLimiter(cfg.Scraper.BurstSize, cfg.Scraper.RateLimitMin),
	}
	if cfg.Redis.Addr == "" {
		return local
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, client)

	shared := ratelimit.NewRedisRateLimiter(client, cfg.Redis.RateLimitKey, cfg.Redis.RateLimitMax,
		cfg.Redis.RateLimitEvery, local[1], a.logger)

	// The adaptive limiter keeps pacing and receives feedback; Redis replaces
	// the local bucket and falls back to it.
	return ratelimit.Chain{local[0], shared}
}

// BrowserOptions maps configuration onto browser options. A user agent is
// picked at random from the configured pool, and the first proxy is used.
func BrowserOptions(cfg *config.Config) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	opts.AcceptLanguage = cfg.Browser.AcceptLanguage
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.Locale = cfg.Browser.Locale
	opts.ExecutablePath = cfg.Browser.ExecutablePath

	if n := len(cfg.Scraper.UserAgents); n > 0 {
		opts.UserAgent = cfg.Scraper.UserAgents[rand.IntN(n)]
	}
	if len(cfg.Scraper.Proxies) > 0 {
		opts.ProxyServer = cfg.Scraper.Proxies[0]
	}
	return opts
}

// Engines builds the named browser engines in order. Names are matched
// exactly; config.Load lower-cases them.
func Engines(names []string, opts *browser.Options, logger *slog.Logger) ([]browser.Engine, error) {
	engines := make([]browser.Engine, 0, len(names))
	for _, name := range names {
		switch name {
		case "playwright":
			engines = append(engines, browser.NewPlaywrightEngine(opts, logger))
		case "chromedp":
			engines = append(engines, browser.NewChromedpEngine(opts, logger))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
		}
	}
	if len(engines) == 0 {
		return nil, browser.ErrNoEngine
	}
	return engines, nil
}

func Weights(r config.RankingConfig) search.Weights {
	return search.Weights{
		TokenMatch:       r.TokenMatch,
		BrandMatch:       r.BrandMatch,
		PriceAvailable:   r.PriceAvailable,
		RatingMultiplier: r.RatingMultiplier,
		PrimaryBonus:     r.PrimaryBonus,
		AlternativeBonus: r.AlternativeBonus,
		FallbackBonus:    r.FallbackBonus,
	}
}
