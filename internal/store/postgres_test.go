package store

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtb/swap-engine/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresStore(sqlx.NewDb(db, "postgres"), slog.New(slog.DiscardHandler)), mock
}

func TestPostgresStoreCreate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO orders").
		WithArgs("order-1", "SOL", "USDC", 10.0, domain.OrderStatusPending,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Create(context.Background(), newTestOrder("order-1"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFindByID(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	logs := `[{"status":"ROUTING","message":"Finding best route...","timestamp":"2026-01-02T03:04:05Z"}]`

	rows := sqlmock.NewRows([]string{
		"id", "input_token", "output_token", "amount",
		"status", "tx_hash", "execution_logs", "created_at", "updated_at",
	}).AddRow("order-1", "SOL", "USDC", 10.0, domain.OrderStatusRouting, "", []byte(logs), now, now)

	mock.ExpectQuery("SELECT id, input_token").
		WithArgs("order-1").
		WillReturnRows(rows)

	order, err := s.FindByID(context.Background(), "order-1")
	require.NoError(t, err)

	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, domain.OrderStatusRouting, order.Status)
	require.Len(t, order.ExecutionLog, 1)
	assert.Equal(t, "Finding best route...", order.ExecutionLog[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFindByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, input_token").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestPostgresStoreUpdate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE orders").
		WithArgs(domain.OrderStatusConfirmed, "0xabc", sqlmock.AnyArg(), "order-1",
			domain.OrderStatusConfirmed, domain.OrderStatusFailed).
		WillReturnRows(sqlmock.NewRows([]string{"jsonb_array_length"}).AddRow(4))

	res, err := s.Update(context.Background(), "order-1", Mutation{
		Status:  domain.OrderStatusConfirmed,
		Message: "Swap confirmed. Final price: 100.2000",
		TxHash:  "0xabc",
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Seq)
	assert.Equal(t, domain.OrderStatusConfirmed, res.Entry.Status)
	assert.WithinDuration(t, time.Now().UTC(), res.Entry.Timestamp, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpdateTerminalOrder(t *testing.T) {
	s, mock := newMockStore(t)

	// The guarded UPDATE matches nothing; the follow-up lookup reports
	// the order is already terminal.
	mock.ExpectQuery("UPDATE orders").
		WithArgs(domain.OrderStatusRouting, "", sqlmock.AnyArg(), "order-1",
			domain.OrderStatusConfirmed, domain.OrderStatusFailed).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(domain.OrderStatusConfirmed))

	_, err := s.Update(context.Background(), "order-1", Mutation{
		Status:  domain.OrderStatusRouting,
		Message: "must not happen",
	})
	assert.ErrorIs(t, err, domain.ErrOrderTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpdateNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE orders").
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Update(context.Background(), "missing", Mutation{
		Status:  domain.OrderStatusRouting,
		Message: "x",
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
