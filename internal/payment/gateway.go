package payment

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidSignature = errors.New("signature du webhook invalide")
	ErrMalformedPayload = errors.New("payload du webhook invalide")
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// Clés de métadonnées posées sur l'intention de paiement
const (
	MetaBag      = "bag"
	MetaSaveInfo = "save_info"
	MetaUsername = "username"
	MetaEmail    = "email"

	AnonymousUser = "AnonymousUser"
)

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Party : nom et coordonnées (livraison ou facturation)
type Party struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
}

// Intent : la partie de l'intention de paiement utile à la réconciliation
type Intent struct {
	ID          string
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
	Shipping    Party
	Billing     Party
}

type Event struct {
	ID     string
	Type   string
	Intent *Intent
}

// CreatedIntent est renvoyé au client pour confirmer le paiement
type CreatedIntent struct {
	ID           string
	ClientSecret string
}

type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (*CreatedIntent, error)
	ModifyIntent(ctx context.Context, intentID string, metadata map[string]string) error
	VerifyAndParse(payload []byte, signature, secret string) (*Event, error)
}

// IntentIDFromClientSecret : "pi_123_secret_abc" → "pi_123"
func IntentIDFromClientSecret(secret string) string {
	return strings.Split(secret, "_secret")[0]
}
