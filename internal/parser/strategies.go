package parser

import (
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var ErrInvalidSelector = errors.New("invalid container selector")

// ContainerStrategy locates product containers on a listing page.
type ContainerStrategy struct {
	Name  string
	Match func(doc *goquery.Document) *goquery.Selection
}

func selectorStrategy(name, selector string) ContainerStrategy {
	return ContainerStrategy{
		Name: name,
		Match: func(doc *goquery.Document) *goquery.Selection {
			return outermost(doc.Find(selector))
		},
	}
}

// DefaultContainerStrategies lists the listing layouts seen on the storefront,
// most structural first.
func DefaultContainerStrategies() []ContainerStrategy {
	return []ContainerStrategy{
		selectorStrategy("product-link", `a[data-testid="product-card"], a[data-product-id][href]`),
		selectorStrategy("component", `div[data-testid*="product-card"], div[data-testid="product-list-item"], div[class*="ProductCard"], div[class*="product-card"]`),
		selectorStrategy("legacy", `.c-product-box, .c-product-list__item, li.c-listing__item`),
		selectorStrategy("generic", `article, div[class*="card"]`),
	}
}

// WithCustomSelectors compiles one strategy per selector, named custom-1,
// custom-2 and so on, and places them ahead of DefaultContainerStrategies.
func WithCustomSelectors(selectors []string) ([]ContainerStrategy, error) {
	strategies := make([]ContainerStrategy, 0, len(selectors)+4)
	for i, selector := range selectors {
		compiled, err := cascadia.Compile(selector)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSelector, selector, err)
		}
		strategies = append(strategies, ContainerStrategy{
			Name: fmt.Sprintf("custom-%d", i+1),
			Match: func(doc *goquery.Document) *goquery.Selection {
				return outermost(doc.FindMatcher(compiled))
			},
		})
	}
	return append(strategies, DefaultContainerStrategies()...), nil
}

// outermost drops elements nested inside another element of the same
// selection, so "product-card" and "product-card__title" do not both count.
func outermost(sel *goquery.Selection) *goquery.Selection {
	if sel.Length() < 2 {
		return sel
	}

	set := make(map[*html.Node]struct{}, sel.Length())
	for _, n := range sel.Nodes {
		set[n] = struct{}{}
	}

	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		for p := s.Nodes[0].Parent; p != nil; p = p.Parent {
			if _, nested := set[p]; nested {
				return false
			}
		}
		return true
	})
}
