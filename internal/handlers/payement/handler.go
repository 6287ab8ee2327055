package payement

import (
	"context"

	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/payment"
	"storefront_back_end/internal/pricing"
	"storefront_back_end/internal/profiles"
)

// OrderReader : lecture d'une commande pour la page de succès
type OrderReader interface {
	GetByNumber(ctx context.Context, number string) (*orders.Order, error)
}

type Deps struct {
	Engine   *checkout.Engine
	Gateway  payment.Gateway
	Carts    *cart.Store
	Catalog  catalog.Lookup
	Policy   pricing.DeliveryPolicy
	Profiles profiles.Store
	Orders   OrderReader
	Stripe   config.StripeConfig
}

type Handler struct {
	Deps
}

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}
