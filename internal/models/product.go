package models

import (
	"strings"
)

// Placeholder display strings for fields the page did not carry.
const (
	PriceUnavailable = "قیمت موجود نیست"
	NoRating         = "بدون امتیاز"
	UnknownBrand     = "نامشخص"
)

type Product struct {
	Name           string   `json:"name"`
	Price          string   `json:"price"`
	Rating         string   `json:"rating"`
	Brand          string   `json:"brand"`
	URL            string   `json:"url"`
	ImageURL       string   `json:"image_url"`
	Description    string   `json:"description"`
	SourceStrategy Strategy `json:"source_strategy,omitempty"`
	RelevanceScore float64  `json:"relevance_score"`
}

// NewProduct returns a product with every optional display field set to its placeholder.
func NewProduct(name, url string) Product {
	return Product{
		Name:   name,
		URL:    url,
		Price:  PriceUnavailable,
		Rating: NoRating,
		Brand:  UnknownBrand,
	}
}

func (p *Product) HasPrice() bool {
	price := strings.TrimSpace(p.Price)
	return price != "" && !strings.Contains(price, "موجود نیست")
}

func (p *Product) HasRating() bool {
	rating := strings.TrimSpace(p.Rating)
	return rating != "" && rating != NoRating
}

// FillPlaceholders replaces empty display fields with their placeholders.
func (p *Product) FillPlaceholders() {
	if strings.TrimSpace(p.Price) == "" {
		p.Price = PriceUnavailable
	}
	if strings.TrimSpace(p.Rating) == "" {
		p.Rating = NoRating
	}
	if strings.TrimSpace(p.Brand) == "" {
		p.Brand = UnknownBrand
	}
}
