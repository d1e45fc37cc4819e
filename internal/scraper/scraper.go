package scraper

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/maltedev/digikala-search/internal/browser"
	"github.com/maltedev/digikala-search/internal/models"
)

var (
	ErrNoProducts = errors.New("no products extracted")
	ErrBlocked    = errors.New("blocked by Digikala anti-bot")
	ErrNavigation = errors.New("navigation failed")
)

const (
	DefaultBaseURL   = "https://www.digikala.com"
	DefaultMobileURL = "https://m.digikala.com"
)

// Scraper returns products for a single search term. Implementations never
// fail; an unreachable or empty site yields an empty slice.
type Scraper interface {
	Fetch(ctx context.Context, term string, limit int) []models.Product
}

// SessionProvider hands out a browser session scoped to fn.
type SessionProvider interface {
	WithSession(ctx context.Context, fn func(browser.Session) error) error
}

type Options struct {
	BaseURL      string
	MobileURL    string
	SearchSettle time.Duration
	MobileSettle time.Duration
}

func DefaultOptions() Options {
	return Options{
		BaseURL:      DefaultBaseURL,
		MobileURL:    DefaultMobileURL,
		SearchSettle: 3 * time.Second,
		MobileSettle: 2 * time.Second,
	}
}

type categoryRoute struct {
	Pattern *regexp.Regexp
	Path    string
}

// categoryRoutes map a search term to a category listing. Order matters:
// headphone must be tried before phone.
var categoryRoutes = []categoryRoute{
	{regexp.MustCompile(`(?i)laptop|notebook|لپ[\s\x{200c}]?تاپ`), "/search/category-notebook-netbook-ultrabook/"},
	{regexp.MustCompile(`(?i)headphone|headset|earphone|هدفون|هندزفری|هدست`), "/search/category-headphone/"},
	{regexp.MustCompile(`(?i)phone|mobile|گوشی|موبایل`), "/search/category-mobile-phone/"},
	{regexp.MustCompile(`(?i)tablet|ipad|تبلت`), "/search/category-tablet/"},
	{regexp.MustCompile(`(?i)\btv\b|television|تلویزیون`), "/search/category-tv/"},
	{regexp.MustCompile(`(?i)smart[\s-]?watch|ساعت[\s\x{200c}]هوشمند`), "/search/category-smart-watch/"},
	{regexp.MustCompile(`(?i)shaver|trimmer|ماشین[\s\x{200c}]اصلاح|ریش[\s\x{200c}]?تراش`), "/search/category-shaver/"},
}

// categoryPath returns the listing path for term, or false when no
// category applies.
func categoryPath(term string) (string, bool) {
	for _, route := range categoryRoutes {
		if route.Pattern.MatchString(term) {
			return route.Path, true
		}
	}
	return "", false
}
