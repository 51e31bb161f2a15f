// Package catalog holds the asset and product reference data the
// simulator is seeded with. Records are loaded once at startup and are
// read-only afterwards.
package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Asset is a simulated physical production unit.
type Asset struct {
	ID                string
	SiteID            int
	Name              string
	Type              string
	SerialNumber      string
	MaintenanceStatus string
}

// Product is a manufactured item; one is attached to every event.
type Product struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal
	UnitCost decimal.Decimal
}

// Catalog is the immutable reference data set. Order is preserved from
// the source files; asset #N in console commands means Assets[N-1].
type Catalog struct {
	Assets   []Asset
	Products []Product
}

// New builds a catalog from already-loaded records. Both lists must be
// non-empty: starting a simulation with zero workers or no products to
// attach would silently produce nothing.
func New(assets []Asset, products []Product) (*Catalog, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("catalog: no assets")
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("catalog: no products")
	}
	return &Catalog{Assets: assets, Products: products}, nil
}

// AssetByIndex resolves a 1-based asset number as used by console
// commands. Returns an error for out-of-range indices.
func (c *Catalog) AssetByIndex(n int) (*Asset, error) {
	if n < 1 || n > len(c.Assets) {
		return nil, fmt.Errorf("catalog: asset number %d out of range 1-%d", n, len(c.Assets))
	}
	return &c.Assets[n-1], nil
}
