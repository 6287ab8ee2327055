package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id                   BIGSERIAL PRIMARY KEY,
	order_number         VARCHAR(32)   NOT NULL UNIQUE,
	user_profile_id      TEXT          NULL,
	full_name            VARCHAR(50)   NOT NULL,
	email                VARCHAR(254)  NOT NULL,
	phone_number         VARCHAR(20)   NOT NULL,
	country              VARCHAR(40)   NOT NULL,
	postcode             VARCHAR(20)   NOT NULL DEFAULT '',
	town_or_city         VARCHAR(40)   NOT NULL,
	street_address1      VARCHAR(80)   NOT NULL,
	street_address2      VARCHAR(80)   NOT NULL DEFAULT '',
	county               VARCHAR(80)   NOT NULL DEFAULT '',
	date                 TIMESTAMPTZ   NOT NULL DEFAULT now(),
	delivery_cost        NUMERIC(6,2)  NOT NULL DEFAULT 0,
	order_total          NUMERIC(10,2) NOT NULL DEFAULT 0,
	grand_total          NUMERIC(10,2) NOT NULL DEFAULT 0,
	original_bag         TEXT          NOT NULL DEFAULT '',
	stripe_pid           VARCHAR(254)  NOT NULL DEFAULT '',
	confirmation_sent_at TIMESTAMPTZ   NULL
);
CREATE INDEX IF NOT EXISTS orders_stripe_pid_idx ON orders (stripe_pid);
CREATE INDEX IF NOT EXISTS orders_user_profile_idx ON orders (user_profile_id);

CREATE TABLE IF NOT EXISTS order_line_items (
	id             BIGSERIAL PRIMARY KEY,
	order_id       BIGINT        NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	product_id     TEXT          NOT NULL,
	product_name   TEXT          NOT NULL,
	sku            TEXT          NOT NULL DEFAULT '',
	product_size   VARCHAR(2)    NOT NULL DEFAULT '',
	quantity       INTEGER       NOT NULL CHECK (quantity > 0),
	unit_price     NUMERIC(10,2) NOT NULL,
	lineitem_total NUMERIC(10,2) NOT NULL
);
CREATE INDEX IF NOT EXISTS order_line_items_order_idx ON order_line_items (order_id);
`

const orderColumns = `id, order_number, user_profile_id, full_name, email, phone_number, country,
	postcode, town_or_city, street_address1, street_address2, county, date,
	delivery_cost, order_total, grand_total, original_bag, stripe_pid, confirmation_sent_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate crée les tables si elles n'existent pas
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migration commandes: %w", err)
	}
	return nil
}

// Create enregistre la commande et toutes ses lignes dans une seule transaction
func (r *Repository) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s := o.Shipping
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (order_number, user_profile_id, full_name, email, phone_number, country,
			postcode, town_or_city, street_address1, street_address2, county, date,
			delivery_cost, order_total, grand_total, original_bag, stripe_pid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`,
		o.OrderNumber, o.ProfileID, s.FullName, s.Email, s.PhoneNumber, s.Country,
		s.Postcode, s.TownOrCity, s.StreetAddress1, s.StreetAddress2, s.County, o.Date,
		o.DeliveryCost, o.OrderTotal, o.GrandTotal, o.OriginalBag, o.StripePID,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insertion commande: %w", err)
	}

	for i := range o.LineItems {
		item := &o.LineItems[i]
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_line_items (order_id, product_id, product_name, sku, product_size,
				quantity, unit_price, lineitem_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			o.ID, item.ProductID, item.ProductName, item.SKU, item.Size,
			item.Quantity, item.UnitPrice, item.LineItemTotal,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insertion ligne %s: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit commande: %w", err)
	}
	log.Printf("✅ Commande %s enregistrée (%d lignes, total %s)", o.OrderNumber, len(o.LineItems), o.GrandTotal.StringFixed(2))
	return nil
}

// FindByFingerprint : correspondance exacte, insensible à la casse sur les champs texte
func (r *Repository) FindByFingerprint(ctx context.Context, fp Fingerprint) (*Order, error) {
	s := fp.Shipping.Normalize()
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE UPPER(full_name) = UPPER($1)
			AND UPPER(email) = UPPER($2)
			AND UPPER(phone_number) = UPPER($3)
			AND UPPER(country) = UPPER($4)
			AND UPPER(postcode) = UPPER($5)
			AND UPPER(town_or_city) = UPPER($6)
			AND UPPER(street_address1) = UPPER($7)
			AND UPPER(street_address2) = UPPER($8)
			AND UPPER(county) = UPPER($9)
			AND grand_total = $10
			AND original_bag = $11
			AND stripe_pid = $12
		ORDER BY id
		LIMIT 1`,
		s.FullName, s.Email, s.PhoneNumber, s.Country, s.Postcode, s.TownOrCity,
		s.StreetAddress1, s.StreetAddress2, s.County, fp.GrandTotal, fp.OriginalBag, fp.StripePID,
	)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	// la confirmation envoyée pour une commande vérifiée liste ses lignes
	if o.LineItems, err = r.lineItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByNumber retourne la commande et ses lignes
func (r *Repository) GetByNumber(ctx context.Context, number string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if o.LineItems, err = r.lineItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByProfile : historique d'un compte, plus récent d'abord
func (r *Repository) ListByProfile(ctx context.Context, profileID string) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_profile_id = $1 ORDER BY date DESC`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range list {
		if list[i].LineItems, err = r.lineItems(ctx, list[i].ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// ClaimConfirmation marque la commande comme notifiée.
// Retourne false si une confirmation a déjà été réclamée.
func (r *Repository) ClaimConfirmation(ctx context.Context, orderID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET confirmation_sent_at = now() WHERE id = $1 AND confirmation_sent_at IS NULL`, orderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseConfirmation annule la réclamation (échec d'envoi)
func (r *Repository) ReleaseConfirmation(ctx context.Context, orderID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE orders SET confirmation_sent_at = NULL WHERE id = $1`, orderID)
	return err
}

func (r *Repository) lineItems(ctx context.Context, orderID int64) ([]LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, sku, product_size, quantity, unit_price, lineitem_total
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []LineItem{}
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.SKU, &item.Size,
			&item.Quantity, &item.UnitPrice, &item.LineItemTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*Order, error) {
	var (
		o         Order
		profileID sql.NullString
		sentAt    sql.NullTime
	)
	s := &o.Shipping
	err := row.Scan(&o.ID, &o.OrderNumber, &profileID, &s.FullName, &s.Email, &s.PhoneNumber, &s.Country,
		&s.Postcode, &s.TownOrCity, &s.StreetAddress1, &s.StreetAddress2, &s.County, &o.Date,
		&o.DeliveryCost, &o.OrderTotal, &o.GrandTotal, &o.OriginalBag, &o.StripePID, &sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if profileID.Valid {
		o.ProfileID = &profileID.String
	}
	if sentAt.Valid {
		o.ConfirmationSentAt = &sentAt.Time
	}
	o.LineItems = []LineItem{}
	return &o, nil
}
