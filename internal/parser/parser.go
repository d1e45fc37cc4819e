package parser

import (
	"github.com/maltedev/digikala-search/internal/models"
)

// Parser turns a listing page into products.
type Parser interface {
	Extract(markup string, strategies []ContainerStrategy, limit int) ([]models.Product, error)
}
