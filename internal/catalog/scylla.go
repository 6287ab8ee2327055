package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
	"gopkg.in/inf.v0"
)

// ScyllaCatalog lit la table products du keyspace produits
type ScyllaCatalog struct {
	session *gocql.Session
}

func NewScyllaCatalog(session *gocql.Session) *ScyllaCatalog {
	return &ScyllaCatalog{session: session}
}

func (s *ScyllaCatalog) GetProduct(ctx context.Context, id string) (*Product, error) {
	var (
		name, sku string
		price     *inf.Dec
		hasSizes  bool
	)

	err := s.session.Query(
		`SELECT name, sku, price, has_sizes FROM products WHERE product_id = ?`, id,
	).WithContext(ctx).Scan(&name, &sku, &price, &hasSizes)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lecture produit %s: %w", id, err)
	}

	return &Product{
		ID:       id,
		Name:     name,
		SKU:      sku,
		Price:    fromInfDec(price),
		HasSizes: hasSizes,
	}, nil
}

// fromInfDec convertit un decimal CQL sans passer par float64
func fromInfDec(d *inf.Dec) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(d.UnscaledBig(), -int32(d.Scale()))
}
