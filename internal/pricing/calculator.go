package pricing

import (
	"context"
	"fmt"

	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DeliveryPolicy : livraison offerte au-delà du seuil, sinon un pourcentage du sous-total
type DeliveryPolicy struct {
	FreeThreshold      decimal.Decimal
	StandardPercentage decimal.Decimal
}

// Delivery retourne les frais de livraison et le montant restant avant la livraison offerte
func (p DeliveryPolicy) Delivery(subtotal decimal.Decimal) (delivery, freeDeliveryDelta decimal.Decimal) {
	if subtotal.LessThan(p.FreeThreshold) {
		return subtotal.Mul(p.StandardPercentage).Div(hundred), p.FreeThreshold.Sub(subtotal)
	}
	return decimal.Zero, decimal.Zero
}

type Line struct {
	Product   catalog.Product `json:"product"`
	Size      string          `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Summary struct {
	Lines                 []Line          `json:"lines"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	Delivery              decimal.Decimal `json:"delivery"`
	FreeDeliveryDelta     decimal.Decimal `json:"free_delivery_delta"`
	FreeDeliveryThreshold decimal.Decimal `json:"free_delivery_threshold"`
	GrandTotal            decimal.Decimal `json:"grand_total"`
	ProductCount          int             `json:"product_count"`
}

// Calculate résout chaque ligne dans le catalogue puis calcule les totaux.
// Un seul produit introuvable fait échouer tout le calcul.
func Calculate(ctx context.Context, snap cart.Snapshot, lookup catalog.Lookup, policy DeliveryPolicy) (*Summary, error) {
	sum := &Summary{
		Lines:                 []Line{},
		Subtotal:              decimal.Zero,
		FreeDeliveryThreshold: policy.FreeThreshold,
		ProductCount:          snap.ProductCount(),
	}

	products := map[string]*catalog.Product{}
	for _, l := range snap.Lines() {
		p, ok := products[l.ProductID]
		if !ok {
			var err error
			if p, err = lookup.GetProduct(ctx, l.ProductID); err != nil {
				return nil, fmt.Errorf("calcul panier: %w", err)
			}
			products[l.ProductID] = p
		}

		total := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		sum.Lines = append(sum.Lines, Line{Product: *p, Size: l.Size, Quantity: l.Quantity, LineTotal: total})
		sum.Subtotal = sum.Subtotal.Add(total)
	}

	sum.Delivery, sum.FreeDeliveryDelta = policy.Delivery(sum.Subtotal)
	sum.GrandTotal = sum.Subtotal.Add(sum.Delivery)
	return sum, nil
}

// MinorUnits convertit un montant en centimes, arrondi au pair le plus proche
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).RoundBank(0).IntPart()
}

// ChargeAmount est le montant débité : sous-total et livraison arrondis séparément au centime,
// comme dans la commande enregistrée.
func (s *Summary) ChargeAmount() int64 {
	return MinorUnits(s.Subtotal) + MinorUnits(s.Delivery)
}
