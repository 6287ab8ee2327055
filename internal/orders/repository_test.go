package orders

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

var orderRowColumns = []string{
	"id", "order_number", "user_profile_id", "full_name", "email", "phone_number", "country",
	"postcode", "town_or_city", "street_address1", "street_address2", "county", "date",
	"delivery_cost", "order_total", "grand_total", "original_bag", "stripe_pid", "confirmation_sent_at",
}

func orderRow(id int64, number string) *sqlmock.Rows {
	return sqlmock.NewRows(orderRowColumns).AddRow(
		id, number, nil, "Ada Lovelace", "ada@example.com", "0102030405", "FR",
		"75002", "Paris", "1 Rue de la Paix", "", "", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		"3.00", "29.97", "32.97", `{"42":3}`, "pi_123", nil,
	)
}

func TestCreate_OrderAndLinesInOneTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)

	o := New(ShippingDetails{FullName: "Ada Lovelace"}, policy)
	o.AddLine(product("42", "9.99"), "", 3)
	o.AddLine(product("7", "5"), "M", 1)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_line_items")).
		WithArgs(int64(10), "42", "P42", "SKU-42", "", 3, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_line_items")).
		WithArgs(int64(10), "7", "P7", "SKU-7", "M", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), o))
	assert.Equal(t, int64(10), o.ID)
	assert.Equal(t, int64(101), o.LineItems[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RollsBackOnLineFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	o := New(ShippingDetails{}, policy)
	o.AddLine(product("42", "9.99"), "", 1)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_line_items")).
		WillReturnError(errors.New("violation de contrainte"))
	mock.ExpectRollback()

	assert.Error(t, repo.Create(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByFingerprint_LoadsLineItems(t *testing.T) {
	repo, mock := newMockRepo(t)

	o := New(ShippingDetails{FullName: " Ada  Lovelace ", Email: "ADA@example.com"}, policy)
	o.AddLine(product("42", "9.99"), "", 3)
	o.OriginalBag = `{"42":3}`
	o.StripePID = "pi_123"

	mock.ExpectQuery(regexp.QuoteMeta("WHERE UPPER(full_name) = UPPER($1)")).
		WithArgs("Ada Lovelace", "ADA@example.com", "", "", "", "", "", "", "",
			sqlmock.AnyArg(), `{"42":3}`, "pi_123").
		WillReturnRows(orderRow(10, "ABC"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_line_items")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "product_name", "sku", "product_size", "quantity", "unit_price", "lineitem_total"}).
			AddRow(100, "42", "P42", "SKU-42", "", 3, "9.99", "29.97"))

	found, err := repo.FindByFingerprint(context.Background(), o.Fingerprint())
	require.NoError(t, err)
	assert.Equal(t, "ABC", found.OrderNumber)
	require.Len(t, found.LineItems, 1)
	assert.Equal(t, "P42", found.LineItems[0].ProductName)
	assert.Equal(t, 3, found.LineItems[0].Quantity)
	assert.Equal(t, "32.97", found.GrandTotal.StringFixed(2))
	assert.Nil(t, found.ProfileID)
	assert.Nil(t, found.ConfirmationSentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByFingerprint_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders")).WillReturnRows(sqlmock.NewRows(orderRowColumns))

	_, err := repo.FindByFingerprint(context.Background(), Fingerprint{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByNumber_LoadsLineItems(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE order_number = $1")).
		WithArgs("ABC").
		WillReturnRows(orderRow(10, "ABC"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_line_items")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "product_name", "sku", "product_size", "quantity", "unit_price", "lineitem_total"}).
			AddRow(100, "42", "Bonnet", "BN-1", "", 3, "9.99", "29.97"))

	o, err := repo.GetByNumber(context.Background(), "ABC")
	require.NoError(t, err)
	require.Len(t, o.LineItems, 1)
	assert.Equal(t, "29.97", o.LineItems[0].LineItemTotal.String())
	assert.True(t, o.OrderTotal.Equal(o.LineItems[0].LineItemTotal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByNumber_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE order_number = $1")).WillReturnRows(sqlmock.NewRows(orderRowColumns))

	_, err := repo.GetByNumber(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByProfile(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_profile_id = $1")).
		WithArgs("user-1").
		WillReturnRows(orderRow(10, "ABC"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_line_items")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "product_name", "sku", "product_size", "quantity", "unit_price", "lineitem_total"}))

	list, err := repo.ListByProfile(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].LineItems)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimConfirmation_OnlyOnce(t *testing.T) {
	repo, mock := newMockRepo(t)
	claim := regexp.QuoteMeta("confirmation_sent_at IS NULL")

	mock.ExpectExec(claim).WithArgs(int64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(claim).WithArgs(int64(10)).WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.ClaimConfirmation(context.Background(), 10)
	require.NoError(t, err)
	second, err := repo.ClaimConfirmation(context.Background(), 10)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseConfirmation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("SET confirmation_sent_at = NULL")).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReleaseConfirmation(context.Background(), 10))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS orders")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
