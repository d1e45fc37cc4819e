package parser

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/digikala-search/internal/metrics"
	"github.com/maltedev/digikala-search/internal/models"
)

var ErrInvalidBaseURL = errors.New("base URL must be an absolute http(s) URL")

// Extractor reads product listings out of storefront markup. Every product it
// returns has an absolute URL on the base origin and a non-empty name.
type Extractor struct {
	base  *url.URL
	hosts map[string]struct{}
}

func NewExtractor(baseURL string) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	host := strings.ToLower(base.Hostname())
	bare := strings.TrimPrefix(strings.TrimPrefix(host, "www."), "m.")

	return &Extractor{
		base: &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"},
		hosts: map[string]struct{}{
			host:          {},
			bare:          {},
			"www." + bare: {},
			"m." + bare:   {},
		},
	}, nil
}

// Extract uses the first strategy that matches anything as the only source of
// containers. When no container yields a product, bare product links
// anywhere on the page are used instead. A nil strategies slice selects
// DefaultContainerStrategies.
func (e *Extractor) Extract(markup string, strategies []ContainerStrategy, limit int) ([]models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if limit <= 0 {
		return nil, nil
	}
	if strategies == nil {
		strategies = DefaultContainerStrategies()
	}

	for _, strategy := range strategies {
		containers := strategy.Match(doc)
		if containers == nil || containers.Length() == 0 {
			continue
		}

		products := e.fromContainers(containers, limit)
		if len(products) > 0 {
			metrics.ProductsExtractedTotal.WithLabelValues(strategy.Name).Add(float64(len(products)))
			return products, nil
		}
		break
	}

	products := e.fromBareLinks(doc, limit)
	if len(products) > 0 {
		metrics.ProductsExtractedTotal.WithLabelValues("bare-links").Add(float64(len(products)))
	}
	return products, nil
}

func (e *Extractor) fromContainers(containers *goquery.Selection, limit int) []models.Product {
	products := make([]models.Product, 0, min(limit, containers.Length()))

	containers.EachWithBreak(func(_ int, c *goquery.Selection) bool {
		productURL, ok := e.productURL(c)
		if !ok {
			return true
		}

		name := firstText(c, nameCascade)
		if name == "" {
			return true
		}

		p := models.Product{
			Name:        name,
			URL:         productURL,
			Price:       firstText(c, priceCascade),
			Rating:      firstText(c, ratingCascade),
			Brand:       firstText(c, brandCascade),
			ImageURL:    e.resolveAnyURL(imageSource(c)),
			Description: firstText(c, descriptionCascade),
		}
		if p.Description == p.Name {
			p.Description = ""
		}
		p.FillPlaceholders()

		products = append(products, p)
		return len(products) < limit
	})

	return products
}

func (e *Extractor) fromBareLinks(doc *goquery.Document, limit int) []models.Product {
	var products []models.Product

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		productURL, ok := e.resolveProductURL(a.AttrOr("href", ""))
		if !ok {
			return true
		}

		name := cleanText(a.Text())
		if name == "" {
			name = cleanText(a.AttrOr("title", ""))
		}
		if name == "" {
			return true
		}

		products = append(products, models.NewProduct(name, productURL))
		return len(products) < limit
	})

	return products
}

type fieldCascade []func(c *goquery.Selection) string

func bySelector(selector string) func(c *goquery.Selection) string {
	return func(c *goquery.Selection) string {
		return c.Find(selector).First().Text()
	}
}

var (
	tomanPattern = regexp.MustCompile(`[0-9۰-۹٠-٩][0-9۰-۹٠-٩,٬]*\s*تومان`)

	nameCascade = fieldCascade{
		bySelector("h3"),
		bySelector("h2"),
		bySelector("h4"),
		bySelector("h1"),
		bySelector(`[data-testid*="title"]`),
		bySelector(`[class*="title"], [class*="Title"]`),
		bySelector(`[class*="name"], [class*="Name"]`),
		func(c *goquery.Selection) string {
			if goquery.NodeName(c) == "a" {
				return c.Text()
			}
			if text := c.Find("a").First().Text(); strings.TrimSpace(text) != "" {
				return text
			}
			return c.ParentsFiltered("a").First().Text()
		},
	}

	priceCascade = fieldCascade{
		bySelector(`[data-testid="price-final"]`),
		bySelector(`[data-testid*="price"]`),
		bySelector(`[class*="price"] [class*="final"], [class*="Price"] [class*="final"]`),
		bySelector(`[class*="price"], [class*="Price"]`),
		func(c *goquery.Selection) string {
			return tomanPattern.FindString(c.Text())
		},
	}

	ratingCascade = fieldCascade{
		bySelector(`[data-testid*="rating"], [data-testid*="rate"]`),
		bySelector(`[class*="rating"], [class*="Rating"]`),
		bySelector(`[class*="rate"], [class*="Rate"]`),
	}

	brandCascade = fieldCascade{
		bySelector(`[data-testid*="brand"]`),
		bySelector(`[class*="brand"], [class*="Brand"]`),
	}

	descriptionCascade = fieldCascade{
		bySelector(`[class*="description"], [class*="Description"]`),
		bySelector(`[class*="subtitle"], [class*="Subtitle"]`),
		bySelector("p"),
	}
)

func firstText(c *goquery.Selection, cascade fieldCascade) string {
	for _, field := range cascade {
		if text := cleanText(field(c)); text != "" {
			return text
		}
	}
	return ""
}

func imageSource(c *goquery.Selection) string {
	img := c.Find("img").First()
	for _, attr := range []string{"src", "data-src"} {
		if src := strings.TrimSpace(img.AttrOr(attr, "")); src != "" && !strings.HasPrefix(src, "data:") {
			return src
		}
	}
	if srcset := strings.Fields(img.AttrOr("srcset", "")); len(srcset) > 0 {
		return srcset[0]
	}
	return ""
}
