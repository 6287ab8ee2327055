package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const CartTTL = 30 * 24 * time.Hour // 30 jours

const (
	EventUpdated = "updated"
	EventCleared = "cleared"
)

// Store garde un panier par session dans Redis.
// Chargement et sauvegarde explicites aux bornes de la requête.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client, ttl: CartTTL}
}

func Key(sessionID string) string {
	return "cart:" + sessionID
}

// Channel est le canal pub/sub des changements de panier
func Channel(sessionID string) string {
	return "cart:" + sessionID
}

// Load retourne le panier de la session (vide s'il n'existe pas)
func (s *Store) Load(ctx context.Context, sessionID string) (*Cart, error) {
	data, err := s.client.Get(ctx, Key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("lecture panier: %w", err)
	}

	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Save écrit le panier ; un panier vide supprime la clé
func (s *Store) Save(ctx context.Context, sessionID string, c *Cart) error {
	if c.IsEmpty() {
		return s.Clear(ctx, sessionID)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, Key(sessionID), data, s.ttl)
	pipe.Publish(ctx, Channel(sessionID), EventUpdated)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("écriture panier: %w", err)
	}
	return nil
}

// Clear vide le panier (fin de checkout)
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, Key(sessionID))
	pipe.Publish(ctx, Channel(sessionID), EventCleared)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("suppression panier: %w", err)
	}
	return nil
}

// Subscribe écoute les changements du panier de la session
func (s *Store) Subscribe(ctx context.Context, sessionID string) *redis.PubSub {
	return s.client.Subscribe(ctx, Channel(sessionID))
}
