package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"
)

// StripeGateway : PaymentIntents Stripe et vérification des webhooks
type StripeGateway struct{}

// NewStripeGateway configure la clé API globale du SDK
func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string) (*CreatedIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("création PaymentIntent: %w", err)
	}
	log.Printf("💳 PaymentIntent créé : %s (%d %s)", intent.ID, amountMinor, currency)
	return &CreatedIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *StripeGateway) ModifyIntent(ctx context.Context, intentID string, metadata map[string]string) error {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	if _, err := paymentintent.Update(intentID, params); err != nil {
		return fmt.Errorf("mise à jour PaymentIntent %s: %w", intentID, err)
	}
	return nil
}

// VerifyAndParse vérifie la signature Stripe-Signature puis extrait l'intention de paiement
func (g *StripeGateway) VerifyAndParse(payload []byte, signature, secret string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: données absentes", ErrMalformedPayload)
	}

	if event.Type != EventPaymentSucceeded && event.Type != EventPaymentFailed {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("%w: PaymentIntent sans identifiant", ErrMalformedPayload)
	}
	out.Intent = intentFromStripe(&pi)
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	in := &Intent{
		ID:          pi.ID,
		AmountMinor: pi.AmountReceived,
		Currency:    string(pi.Currency),
		Metadata:    pi.Metadata,
	}
	if in.AmountMinor == 0 {
		in.AmountMinor = pi.Amount
	}
	if in.Metadata == nil {
		in.Metadata = map[string]string{}
	}

	if s := pi.Shipping; s != nil {
		in.Shipping = Party{Name: s.Name, Phone: s.Phone, Address: addressFromStripe(s.Address)}
	}

	if ch := pi.LatestCharge; ch != nil && ch.BillingDetails != nil {
		b := ch.BillingDetails
		in.Billing = Party{Name: b.Name, Email: b.Email, Phone: b.Phone, Address: addressFromStripe(b.Address)}
	}
	if in.Billing.Email == "" {
		in.Billing.Email = pi.ReceiptEmail
	}
	return in
}

func addressFromStripe(a *stripe.Address) Address {
	if a == nil {
		return Address{}
	}
	return Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
