package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/payment"
	"storefront_back_end/internal/pricing"
	"storefront_back_end/internal/profiles"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// OrderStore : persistance des commandes vue par le moteur
type OrderStore interface {
	Create(ctx context.Context, o *orders.Order) error
	FindByFingerprint(ctx context.Context, fp orders.Fingerprint) (*orders.Order, error)
	ClaimConfirmation(ctx context.Context, orderID int64) (bool, error)
	ReleaseConfirmation(ctx context.Context, orderID int64) error
}

// Notifier envoie l'e-mail de confirmation au client
type Notifier interface {
	SendConfirmation(ctx context.Context, o *orders.Order) error
}

type Options struct {
	Attempts int
	Delay    time.Duration
	// Shutdown est annulé à l'arrêt du serveur ; il interrompt les recherches en cours
	Shutdown context.Context
}

type Engine struct {
	orders   OrderStore
	catalog  catalog.Lookup
	profiles profiles.Store
	notifier Notifier
	policy   pricing.DeliveryPolicy
	validate *validator.Validate

	attempts int
	delay    time.Duration
	shutdown context.Context
}

func NewEngine(store OrderStore, lookup catalog.Lookup, profileStore profiles.Store, notifier Notifier, policy pricing.DeliveryPolicy, opts Options) *Engine {
	if opts.Attempts < 1 {
		opts.Attempts = 5
	}
	if opts.Shutdown == nil {
		opts.Shutdown = context.Background()
	}

	v := validator.New()
	v.SetTagName("binding")
	RegisterJSONFieldNames(v)

	return &Engine{
		orders:   store,
		catalog:  lookup,
		profiles: profileStore,
		notifier: notifier,
		policy:   policy,
		validate: v,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		shutdown: opts.Shutdown,
	}
}

// Submission : formulaire de checkout envoyé après confirmation du paiement
type Submission struct {
	Shipping  orders.ShippingDetails
	Bag       cart.Snapshot
	StripePID string
	UserID    string // vide si anonyme
	SaveInfo  bool
}

type Result struct {
	Order *orders.Order
	State State
}

// Submit matérialise la commande depuis le formulaire (chemin synchrone).
// Aucun e-mail n'est envoyé ici, c'est le webhook qui notifie.
func (e *Engine) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if err := e.validate.Struct(sub.Shipping); err != nil {
		return nil, NewValidationError(err)
	}
	if sub.Bag.IsEmpty() {
		return nil, ErrEmptyCart
	}

	var profile *profiles.Profile
	if sub.UserID != "" {
		var err error
		if profile, err = e.loadProfile(ctx, sub.UserID); err != nil {
			return nil, err
		}
	}

	order, err := e.build(ctx, sub.Bag, sub.Shipping, sub.StripePID, profile)
	if err != nil {
		return nil, err
	}

	t := newTracker()
	existing, err := e.orders.FindByFingerprint(ctx, order.Fingerprint())
	switch {
	case err == nil:
		log.Printf("🔁 Commande %s déjà créée par le webhook", existing.OrderNumber)
		order = existing
		err = t.advance(StateOrderVerified)
	case errors.Is(err, orders.ErrNotFound):
		if err = e.orders.Create(ctx, order); err != nil {
			return nil, fmt.Errorf("création commande: %w", err)
		}
		err = t.advance(StateOrderCreated)
	default:
		return nil, fmt.Errorf("recherche commande: %w", err)
	}
	if err != nil {
		return nil, err
	}

	if sub.SaveInfo && profile != nil {
		e.saveDefaults(ctx, profile, order.Shipping)
	}
	return &Result{Order: order, State: t.state}, nil
}

// HandlePaymentSucceeded réconcilie une notification payment_intent.succeeded (chemin asynchrone).
// La commande est recherchée plusieurs fois avant d'être créée à partir du panier embarqué.
func (e *Engine) HandlePaymentSucceeded(ctx context.Context, in *payment.Intent) (*Result, error) {
	// une notification commencée va jusqu'au bout, même si Stripe coupe la connexion
	ctx = context.WithoutCancel(ctx)
	fail := func(err error) (*Result, error) {
		return nil, &ReconciliationError{IntentID: in.ID, Err: err}
	}

	snap, err := cart.ParseSnapshot(in.Metadata[payment.MetaBag])
	if err != nil {
		return fail(err)
	}
	saveInfo := in.Metadata[payment.MetaSaveInfo] == "true"
	username := in.Metadata[payment.MetaUsername]
	shipping := shippingFromIntent(in)
	if err := e.validate.Struct(shipping); err != nil {
		return fail(NewValidationError(err))
	}

	var profile *profiles.Profile
	if username != "" && username != payment.AnonymousUser {
		if profile, err = e.loadProfile(ctx, username); err != nil {
			return fail(err)
		}
		if saveInfo {
			e.saveDefaults(ctx, profile, shipping)
		}
	}

	fp := orders.Fingerprint{
		Shipping:    shipping,
		GrandTotal:  decimal.New(in.AmountMinor, -2),
		OriginalBag: snap.Serialize(),
		StripePID:   in.ID,
	}

	t := newTracker()
	order, err := e.poll(ctx, fp)
	switch {
	case err == nil:
		log.Printf("✅ Commande %s vérifiée pour %s", order.OrderNumber, in.ID)
		if err := t.advance(StateOrderVerified); err != nil {
			return fail(err)
		}
	case errors.Is(err, orders.ErrNotFound):
		if order, err = e.build(ctx, snap, shipping, in.ID, profile); err != nil {
			return fail(err)
		}
		if !order.GrandTotal.Equal(fp.GrandTotal) {
			log.Printf("⚠️ Montant débité %s ≠ total recalculé %s pour %s",
				fp.GrandTotal.StringFixed(2), order.GrandTotal.StringFixed(2), in.ID)
		}
		if err := e.orders.Create(ctx, order); err != nil {
			return fail(err)
		}
		log.Printf("✅ Commande %s créée par le webhook pour %s", order.OrderNumber, in.ID)
		if err := t.advance(StateOrderCreated); err != nil {
			return fail(err)
		}
	default:
		return fail(err)
	}

	sent, err := e.notify(ctx, order)
	if err != nil {
		// la commande est enregistrée : Stripe renverra la notification et l'e-mail partira alors
		return fail(err)
	}
	if sent {
		if err := t.advance(StateNotified); err != nil {
			return fail(err)
		}
	}
	return &Result{Order: order, State: t.state}, nil
}

// poll cherche la commande jusqu'à attempts fois, avec un délai fixe entre deux essais.
// L'arrêt du serveur interrompt la recherche.
func (e *Engine) poll(ctx context.Context, fp orders.Fingerprint) (*orders.Order, error) {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.shutdown, cancel)
	defer stop()

	for attempt := 1; ; attempt++ {
		order, err := e.orders.FindByFingerprint(pollCtx, fp)
		if err == nil || !errors.Is(err, orders.ErrNotFound) {
			return order, err
		}
		if attempt >= e.attempts {
			return nil, err
		}

		timer := time.NewTimer(e.delay)
		select {
		case <-pollCtx.Done():
			timer.Stop()
			return nil, fmt.Errorf("recherche interrompue après %d essais: %w", attempt, pollCtx.Err())
		case <-timer.C:
		}
	}
}

// notify réclame la confirmation puis envoie l'e-mail.
// false sans erreur si elle était déjà envoyée ; en cas d'échec la réclamation est libérée.
func (e *Engine) notify(ctx context.Context, o *orders.Order) (bool, error) {
	claimed, err := e.orders.ClaimConfirmation(ctx, o.ID)
	if err != nil {
		return false, fmt.Errorf("réclamation confirmation %s: %w", o.OrderNumber, err)
	}
	if !claimed {
		log.Printf("ℹ️ Confirmation déjà envoyée pour %s", o.OrderNumber)
		return false, nil
	}

	if err := e.notifier.SendConfirmation(ctx, o); err != nil {
		if rerr := e.orders.ReleaseConfirmation(ctx, o.ID); rerr != nil {
			log.Printf("❌ Libération confirmation %s: %v", o.OrderNumber, rerr)
		}
		return false, fmt.Errorf("envoi confirmation %s: %w", o.OrderNumber, err)
	}
	log.Printf("📧 Confirmation envoyée à %s pour %s", o.Shipping.Email, o.OrderNumber)
	return true, nil
}

// build construit la commande en mémoire ; rien n'est écrit si un produit manque
func (e *Engine) build(ctx context.Context, snap cart.Snapshot, shipping orders.ShippingDetails, stripePID string, profile *profiles.Profile) (*orders.Order, error) {
	order := orders.New(shipping, e.policy)
	order.OriginalBag = snap.Serialize()
	order.StripePID = stripePID
	if profile != nil {
		id := profile.UserID
		order.ProfileID = &id
	}

	for _, line := range snap.Lines() {
		p, err := e.catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}
		if err != nil {
			return nil, err
		}
		order.AddLine(*p, line.Size, line.Quantity)
	}
	return order, nil
}

// loadProfile : un compte sans profil en reçoit un vide
func (e *Engine) loadProfile(ctx context.Context, userID string) (*profiles.Profile, error) {
	p, err := e.profiles.Get(ctx, userID)
	if errors.Is(err, profiles.ErrNotFound) {
		return &profiles.Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) saveDefaults(ctx context.Context, p *profiles.Profile, s orders.ShippingDetails) {
	p.ApplyShipping(s)
	if err := e.profiles.Save(ctx, p); err != nil {
		log.Printf("⚠️ Profil %s non mis à jour: %v", p.UserID, err)
	}
}

// shippingFromIntent : l'e-mail vient des métadonnées posées au checkout,
// latest_charge n'étant pas développé dans les événements
func shippingFromIntent(in *payment.Intent) orders.ShippingDetails {
	s := in.Shipping
	email := in.Metadata[payment.MetaEmail]
	if email == "" {
		email = in.Billing.Email
	}
	return orders.ShippingDetails{
		FullName:       s.Name,
		Email:          email,
		PhoneNumber:    s.Phone,
		Country:        s.Address.Country,
		Postcode:       s.Address.PostalCode,
		TownOrCity:     s.Address.City,
		StreetAddress1: s.Address.Line1,
		StreetAddress2: s.Address.Line2,
		County:         s.Address.State,
	}.Normalize()
}
