package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/maltedev/digikala-search/internal/classifier"
	"github.com/maltedev/digikala-search/internal/metrics"
	"github.com/maltedev/digikala-search/internal/models"
	"github.com/maltedev/digikala-search/internal/scraper"
)

// Expander turns a query into ordered candidate search terms.
type Expander interface {
	Expand(ctx context.Context, q models.Query) []models.CandidateTerm
}

type Options struct {
	// Concurrency bounds simultaneous fetches. Values below 1 mean one.
	Concurrency int
	Weights     Weights
}

func DefaultOptions() Options {
	return Options{
		Concurrency: 1,
		Weights:     DefaultWeights(),
	}
}

// Result is a finished search.
type Result struct {
	RequestID string                 `json:"request_id"`
	Query     string                 `json:"query"`
	Terms     []models.CandidateTerm `json:"terms"`
	Products  []models.Product       `json:"products"`
}

// SearchedFor returns the candidate term texts in priority order.
func (r Result) SearchedFor() []string {
	out := make([]string, len(r.Terms))
	for i, t := range r.Terms {
		out[i] = t.Text
	}
	return out
}

type Service struct {
	expander Expander
	scraper  scraper.Scraper
	opts     Options
	logger   *slog.Logger
}

func NewService(expander Expander, s scraper.Scraper, opts Options, logger *slog.Logger) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Service{
		expander: expander,
		scraper:  s,
		opts:     opts,
		logger:   logger.With("component", "search"),
	}
}

// Search returns at most limit ranked, deduplicated products for text. It
// never fails; every problem along the way yields fewer products.
func (s *Service) Search(ctx context.Context, text string, limit int) []models.Product {
	return s.Run(ctx, models.Query{Text: text}, limit).Products
}

// Run is Search for a full query, reporting the terms that were searched.
func (s *Service) Run(ctx context.Context, q models.Query, limit int) (result Result) {
	start := time.Now()
	result = Result{
		RequestID: uuid.NewString(),
		Query:     q.Text,
		Products:  []models.Product{},
	}
	logger := s.logger.With("request_id", result.RequestID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("search panicked", "panic", fmt.Sprint(r))
			result.Products = []models.Product{}
			metrics.SearchesTotal.WithLabelValues("panic").Inc()
		}
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
	}()

	if limit <= 0 || (strings.TrimSpace(q.Text) == "" && !q.HasOverride()) {
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
		return result
	}
	if q.Language == "" {
		q.Language = classifier.DetectLanguage(q.Text)
	}

	result.Terms = s.expander.Expand(ctx, q)
	logger.Info("searching", "query", q.Text, "language", q.Language, "terms", result.SearchedFor())

	pool := s.gather(ctx, result.Terms, limit)
	unique := Deduplicate(pool)
	rankQuery := q.Text
	if strings.TrimSpace(rankQuery) == "" {
		rankQuery = q.Override
	}
	ranked := Rank(unique, rankQuery, s.opts.Weights)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	result.Products = ranked

	status := "ok"
	if len(ranked) == 0 {
		status = "empty"
	}
	metrics.SearchesTotal.WithLabelValues(status).Inc()
	logger.Info("search finished",
		"pooled", len(pool),
		"unique", len(unique),
		"returned", len(ranked),
		"duration", time.Since(start),
	)

	return result
}

// gather fetches candidates in priority order until the products collected
// from the leading candidates reach limit. With more than one worker later
// candidates start early, but the pool only ever holds the in-order prefix
// a sequential run would have produced. Fetches past that prefix are
// cancelled.
func (s *Service) gather(ctx context.Context, terms []models.CandidateTerm, limit int) []models.Product {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make([][]models.Product, len(terms))
		done    = make([]bool, len(terms))
		cutoff  = -1
	)

	// advance returns the index of the last candidate whose products belong
	// to the pool once the budget is met, or -1 while it is not.
	advance := func() int {
		total := 0
		for i := range terms {
			if !done[i] {
				return -1
			}
			total += len(results[i])
			if total >= limit {
				return i
			}
		}
		return -1
	}

	var g errgroup.Group
	slots := make(chan struct{}, s.opts.Concurrency)

launch:
	for i, term := range terms {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			break launch
		}
		// A finished fetch cancels ctx before it frees its slot.
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			defer func() { <-slots }()

			products := s.fetch(ctx, term.Text, limit)
			for j := range products {
				products[j].SourceStrategy = term.Strategy
			}

			mu.Lock()
			defer mu.Unlock()
			results[i] = products
			done[i] = true
			if cutoff < 0 {
				if cutoff = advance(); cutoff >= 0 {
					cancel()
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	last := len(terms) - 1
	if cutoff >= 0 {
		last = cutoff
	}

	var pool []models.Product
	for i := 0; i <= last; i++ {
		if !done[i] {
			break
		}
		pool = append(pool, results[i]...)
	}
	return pool
}

// fetch keeps a panicking scraper from taking down the worker goroutine,
// which the recover in Run cannot reach.
func (s *Service) fetch(ctx context.Context, term string, limit int) (products []models.Product) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("fetch panicked", "term", term, "panic", fmt.Sprint(r))
			products = nil
		}
	}()
	return s.scraper.Fetch(ctx, term, limit)
}
