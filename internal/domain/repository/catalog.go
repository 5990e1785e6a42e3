package repository

import "TradeRecon/internal/domain/models"

// ProductCatalog resolves instrument master data by symbol. Implementations
// must be safe for repeated lookups within one reconciliation run; the match
// engine caches results for the duration of a run.
type ProductCatalog interface {
	Lookup(symbol string) (models.Product, bool)
}

// StaticCatalog is an in-memory ProductCatalog built from configuration.
type StaticCatalog struct {
	products map[string]models.Product
}

// NewStaticCatalog indexes the given products by symbol. Later duplicates
// win, mirroring shallow config merges.
func NewStaticCatalog(products []models.Product) *StaticCatalog {
	m := make(map[string]models.Product, len(products))
	for _, p := range products {
		m[p.Symbol] = p
	}
	return &StaticCatalog{products: m}
}

// Lookup returns the product for a symbol.
func (c *StaticCatalog) Lookup(symbol string) (models.Product, bool) {
	p, ok := c.products[symbol]
	return p, ok
}
