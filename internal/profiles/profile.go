package profiles

import (
	"context"
	"errors"

	"storefront_back_end/internal/orders"
)

var ErrNotFound = errors.New("profil introuvable")

// Profile garde les informations de livraison par défaut d'un compte
type Profile struct {
	UserID                string `json:"user_id"`
	DefaultPhoneNumber    string `json:"default_phone_number"`
	DefaultStreetAddress1 string `json:"default_street_address1"`
	DefaultStreetAddress2 string `json:"default_street_address2"`
	DefaultTownOrCity     string `json:"default_town_or_city"`
	DefaultCounty         string `json:"default_county"`
	DefaultPostcode       string `json:"default_postcode"`
	DefaultCountry        string `json:"default_country"`
}

// Store : lecture / écriture des profils
type Store interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
}

// ApplyShipping recopie l'adresse de livraison dans les valeurs par défaut
func (p *Profile) ApplyShipping(s orders.ShippingDetails) {
	s = s.Normalize()
	p.DefaultPhoneNumber = s.PhoneNumber
	p.DefaultStreetAddress1 = s.StreetAddress1
	p.DefaultStreetAddress2 = s.StreetAddress2
	p.DefaultTownOrCity = s.TownOrCity
	p.DefaultCounty = s.County
	p.DefaultPostcode = s.Postcode
	p.DefaultCountry = s.Country
}

// Prefill pré-remplit le formulaire de livraison
func (p *Profile) Prefill(fullName, email string) orders.ShippingDetails {
	return orders.ShippingDetails{
		FullName:       fullName,
		Email:          email,
		PhoneNumber:    p.DefaultPhoneNumber,
		Country:        p.DefaultCountry,
		Postcode:       p.DefaultPostcode,
		TownOrCity:     p.DefaultTownOrCity,
		StreetAddress1: p.DefaultStreetAddress1,
		StreetAddress2: p.DefaultStreetAddress2,
		County:         p.DefaultCounty,
	}
}
