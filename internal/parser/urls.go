package parser

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	productPathPattern = regexp.MustCompile(`(?:^|/)product/dkp-\d+`)
	rawProductHref     = regexp.MustCompile(`href=["']([^"']*product/dkp-\d+[^"']*)["']`)
)

// linkSelectors are link-bearing elements inside a container, in priority order.
var linkSelectors = []struct {
	selector string
	attr     string
}{
	{`a[data-testid*="product"]`, "href"},
	{`a[class*="product"], a[class*="Product"]`, "href"},
	{`[data-href]`, "data-href"},
	{`[data-url]`, "data-url"},
}

// resolveURL makes href absolute against the base origin. Hosts of the same
// site are rewritten to the base origin; other hosts are rejected.
func (e *Extractor) resolveURL(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	abs := e.base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if _, ok := e.hosts[strings.ToLower(abs.Hostname())]; !ok {
		return "", false
	}

	abs.Scheme = e.base.Scheme
	abs.Host = e.base.Host
	abs.Fragment = ""
	return abs.String(), true
}

// resolveProductURL is resolveURL restricted to product pages. Home, search
// and category links on the same site are rejected.
func (e *Extractor) resolveProductURL(href string) (string, bool) {
	u, ok := e.resolveURL(href)
	if !ok {
		return "", false
	}
	parsed, err := url.Parse(u)
	if err != nil || !productPathPattern.MatchString(parsed.Path) {
		return "", false
	}
	return u, true
}

// resolveAnyURL makes href absolute without restricting the host. Used for
// images, which are served from a CDN.
func (e *Extractor) resolveAnyURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "data:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}

// productURL walks the URL cascade for a container.
func (e *Extractor) productURL(container *goquery.Selection) (string, bool) {
	if goquery.NodeName(container) == "a" {
		if u, ok := e.resolveProductURL(container.AttrOr("href", "")); ok {
			return u, true
		}
	}

	if parent := container.ParentsFiltered("a[href]").First(); parent.Length() > 0 {
		if u, ok := e.resolveProductURL(parent.AttrOr("href", "")); ok {
			return u, true
		}
	}

	for _, ls := range linkSelectors {
		var found string
		container.Find(ls.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if u, ok := e.resolveProductURL(s.AttrOr(ls.attr, "")); ok {
				found = u
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}

	if outer, err := goquery.OuterHtml(container); err == nil {
		for _, m := range rawProductHref.FindAllStringSubmatch(outer, -1) {
			if u, ok := e.resolveProductURL(html.UnescapeString(m[1])); ok {
				return u, true
			}
		}
	}

	var found string
	container.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if u, ok := e.resolveProductURL(s.AttrOr("href", "")); ok {
			found = u
			return false
		}
		return true
	})
	return found, found != ""
}
