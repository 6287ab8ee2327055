package profiles

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gocql/gocql"
)

// ScyllaStore : table user_profiles du keyspace utilisateurs
type ScyllaStore struct {
	session *gocql.Session
}

func NewScyllaStore(session *gocql.Session) *ScyllaStore {
	return &ScyllaStore{session: session}
}

func (s *ScyllaStore) Get(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{UserID: userID}
	err := s.session.Query(`SELECT default_phone_number, default_street_address1, default_street_address2,
		default_town_or_city, default_county, default_postcode, default_country
		FROM user_profiles WHERE user_id = ?`, userID).WithContext(ctx).Scan(
		&p.DefaultPhoneNumber, &p.DefaultStreetAddress1, &p.DefaultStreetAddress2,
		&p.DefaultTownOrCity, &p.DefaultCounty, &p.DefaultPostcode, &p.DefaultCountry)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("lecture profil %s: %w", userID, err)
	}
	return p, nil
}

// Save écrase le profil (upsert CQL)
func (s *ScyllaStore) Save(ctx context.Context, p *Profile) error {
	err := s.session.Query(`INSERT INTO user_profiles (user_id, default_phone_number, default_street_address1,
		default_street_address2, default_town_or_city, default_county, default_postcode, default_country)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.DefaultPhoneNumber, p.DefaultStreetAddress1, p.DefaultStreetAddress2,
		p.DefaultTownOrCity, p.DefaultCounty, p.DefaultPostcode, p.DefaultCountry,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("écriture profil %s: %w", p.UserID, err)
	}
	log.Printf("✅ Profil %s mis à jour", p.UserID)
	return nil
}
