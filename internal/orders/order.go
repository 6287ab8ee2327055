package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("commande introuvable")

// ShippingDetails : champs du formulaire de livraison
type ShippingDetails struct {
	FullName       string `json:"full_name" binding:"required,max=50"`
	Email          string `json:"email" binding:"required,email,max=254"`
	PhoneNumber    string `json:"phone_number" binding:"required,max=20"`
	Country        string `json:"country" binding:"required,max=40"`
	Postcode       string `json:"postcode" binding:"max=20"`
	TownOrCity     string `json:"town_or_city" binding:"required,max=40"`
	StreetAddress1 string `json:"street_address1" binding:"required,max=80"`
	StreetAddress2 string `json:"street_address2" binding:"max=80"`
	County         string `json:"county" binding:"max=80"`
}

// Normalize supprime les espaces superflus de chaque champ
func (s ShippingDetails) Normalize() ShippingDetails {
	return ShippingDetails{
		FullName:       collapse(s.FullName),
		Email:          collapse(s.Email),
		PhoneNumber:    collapse(s.PhoneNumber),
		Country:        collapse(s.Country),
		Postcode:       collapse(s.Postcode),
		TownOrCity:     collapse(s.TownOrCity),
		StreetAddress1: collapse(s.StreetAddress1),
		StreetAddress2: collapse(s.StreetAddress2),
		County:         collapse(s.County),
	}
}

func collapse(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// LineItem : une ligne de commande, prix figé à la création
type LineItem struct {
	ID            int64           `json:"id,omitempty"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	SKU           string          `json:"sku"`
	Size          string          `json:"product_size,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineItemTotal decimal.Decimal `json:"lineitem_total"`
}

type Order struct {
	ID                 int64           `json:"-"`
	OrderNumber        string          `json:"order_number"`
	ProfileID          *string         `json:"user_profile,omitempty"`
	Shipping           ShippingDetails `json:"shipping"`
	Date               time.Time       `json:"date"`
	DeliveryCost       decimal.Decimal `json:"delivery_cost"`
	OrderTotal         decimal.Decimal `json:"order_total"`
	GrandTotal         decimal.Decimal `json:"grand_total"`
	OriginalBag        string          `json:"original_bag"`
	StripePID          string          `json:"stripe_pid"`
	ConfirmationSentAt *time.Time      `json:"confirmation_sent_at,omitempty"`
	LineItems          []LineItem      `json:"lineitems"`

	policy pricing.DeliveryPolicy
}

// New crée une commande vide (totaux à zéro) avec un numéro généré
func New(shipping ShippingDetails, policy pricing.DeliveryPolicy) *Order {
	return &Order{
		OrderNumber:  NewOrderNumber(),
		Shipping:     shipping.Normalize(),
		Date:         time.Now().UTC(),
		DeliveryCost: decimal.Zero,
		OrderTotal:   decimal.Zero,
		GrandTotal:   decimal.Zero,
		LineItems:    []LineItem{},
		policy:       policy,
	}
}

// NewOrderNumber : 32 caractères hexadécimaux majuscules
func NewOrderNumber() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// AddLine ajoute une ligne au prix courant du produit et recalcule les totaux
func (o *Order) AddLine(p catalog.Product, size string, quantity int) LineItem {
	item := LineItem{
		ProductID:     p.ID,
		ProductName:   p.Name,
		SKU:           p.SKU,
		Size:          size,
		Quantity:      quantity,
		UnitPrice:     p.Price,
		LineItemTotal: p.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
	o.LineItems = append(o.LineItems, item)
	o.recompute()
	return item
}

// RemoveLine retire la ligne i et recalcule les totaux
func (o *Order) RemoveLine(i int) error {
	if i < 0 || i >= len(o.LineItems) {
		return fmt.Errorf("ligne %d inexistante", i)
	}
	o.LineItems = append(o.LineItems[:i], o.LineItems[i+1:]...)
	o.recompute()
	return nil
}

// recompute : order_total = somme des lignes, livraison arrondie au centime
func (o *Order) recompute() {
	total := decimal.Zero
	for _, item := range o.LineItems {
		total = total.Add(item.LineItemTotal)
	}
	delivery, _ := o.policy.Delivery(total)

	o.OrderTotal = total
	o.DeliveryCost = delivery.RoundBank(2)
	o.GrandTotal = o.OrderTotal.Add(o.DeliveryCost)
}

// Fingerprint identifie « la même commande » entre le formulaire et le webhook
type Fingerprint struct {
	Shipping    ShippingDetails
	GrandTotal  decimal.Decimal
	OriginalBag string
	StripePID   string
}

func (o *Order) Fingerprint() Fingerprint {
	return Fingerprint{
		Shipping:    o.Shipping.Normalize(),
		GrandTotal:  o.GrandTotal,
		OriginalBag: o.OriginalBag,
		StripePID:   o.StripePID,
	}
}
