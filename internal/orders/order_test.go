package orders

import (
	"regexp"
	"testing"

	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policy = pricing.DeliveryPolicy{
	FreeThreshold:      decimal.NewFromInt(50),
	StandardPercentage: decimal.NewFromInt(10),
}

func product(id, price string) catalog.Product {
	return catalog.Product{ID: id, Name: "P" + id, SKU: "SKU-" + id, Price: decimal.RequireFromString(price)}
}

func sumLines(o *Order) decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.LineItems {
		total = total.Add(item.LineItemTotal)
	}
	return total
}

func TestNewOrder_StartsEmpty(t *testing.T) {
	o := New(ShippingDetails{FullName: "  Ada   Lovelace "}, policy)

	assert.True(t, o.OrderTotal.IsZero())
	assert.True(t, o.DeliveryCost.IsZero())
	assert.True(t, o.GrandTotal.IsZero())
	assert.Equal(t, "Ada Lovelace", o.Shipping.FullName)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{32}$`), o.OrderNumber)
}

func TestOrderNumbersAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := NewOrderNumber()
		assert.False(t, seen[n])
		seen[n] = true
	}
}

func TestAddLine_RecomputesTotals(t *testing.T) {
	o := New(ShippingDetails{}, policy)

	item := o.AddLine(product("42", "9.99"), "", 3)
	assert.Equal(t, "29.97", item.LineItemTotal.String())
	assert.Equal(t, "29.97", o.OrderTotal.String())
	assert.Equal(t, "3", o.DeliveryCost.String())
	assert.Equal(t, "32.97", o.GrandTotal.String())

	o.AddLine(product("7", "12.50"), "M", 2)
	assert.True(t, o.OrderTotal.Equal(sumLines(o)))
	assert.Equal(t, "54.97", o.OrderTotal.String())
	assert.True(t, o.DeliveryCost.IsZero())
	assert.True(t, o.GrandTotal.Equal(o.OrderTotal))
}

func TestRemoveLine_RecomputesTotals(t *testing.T) {
	o := New(ShippingDetails{}, policy)
	o.AddLine(product("1", "40"), "", 1)
	o.AddLine(product("2", "20"), "S", 1)
	assert.True(t, o.DeliveryCost.IsZero())

	require.NoError(t, o.RemoveLine(1))
	assert.True(t, o.OrderTotal.Equal(sumLines(o)))
	assert.Equal(t, "4", o.DeliveryCost.String())
	assert.Equal(t, "44", o.GrandTotal.String())

	require.NoError(t, o.RemoveLine(0))
	assert.True(t, o.OrderTotal.IsZero())
	assert.True(t, o.GrandTotal.IsZero())

	assert.Error(t, o.RemoveLine(0))
}

func TestLinePriceIsCaptured(t *testing.T) {
	o := New(ShippingDetails{}, policy)
	p := product("42", "9.99")
	o.AddLine(p, "", 1)

	p.Price = decimal.NewFromInt(100)
	assert.Equal(t, "9.99", o.LineItems[0].UnitPrice.String())
}

func TestNormalize(t *testing.T) {
	s := ShippingDetails{
		FullName:       "\tAda \n Lovelace",
		Email:          " ada@example.com ",
		StreetAddress1: "1  Rue   de la Paix",
		County:         "   ",
	}.Normalize()

	assert.Equal(t, "Ada Lovelace", s.FullName)
	assert.Equal(t, "ada@example.com", s.Email)
	assert.Equal(t, "1 Rue de la Paix", s.StreetAddress1)
	assert.Equal(t, "", s.County)
}

func TestFingerprint_IgnoresWhitespaceDifferences(t *testing.T) {
	a := New(ShippingDetails{FullName: "Ada Lovelace", TownOrCity: "Paris"}, policy)
	b := New(ShippingDetails{FullName: " Ada  Lovelace", TownOrCity: "Paris "}, policy)
	for _, o := range []*Order{a, b} {
		o.AddLine(product("42", "9.99"), "", 3)
		o.OriginalBag = `{"42":3}`
		o.StripePID = "pi_123"
	}

	fa, fb := a.Fingerprint(), b.Fingerprint()
	assert.Equal(t, fa.Shipping, fb.Shipping)
	assert.True(t, fa.GrandTotal.Equal(fb.GrandTotal))
	assert.Equal(t, fa.OriginalBag, fb.OriginalBag)
}
