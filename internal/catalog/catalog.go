package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("produit introuvable")

// Product est la vue du catalogue utile au panier et à la commande
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	HasSizes bool            `json:"has_sizes"`
}

// Lookup résout un produit par identifiant ; ErrNotFound s'il n'existe plus
type Lookup interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
}

// LookupFunc adapte une fonction en Lookup
type LookupFunc func(ctx context.Context, id string) (*Product, error)

func (f LookupFunc) GetProduct(ctx context.Context, id string) (*Product, error) {
	return f(ctx, id)
}
