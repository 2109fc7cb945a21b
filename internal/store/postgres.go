package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quangtb/swap-engine/internal/domain"
)

// PostgresStore persists orders in a single table with the execution log
// held as a jsonb array. Log appends use the native jsonb concatenation
// operator so a status change and its log entry commit in one statement.
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore creates a Postgres-backed OrderStore.
func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

func (s *PostgresStore) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, input_token, output_token, amount,
			status, tx_hash, execution_logs, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, '', '[]'::jsonb, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.InputToken,
		order.OutputToken,
		order.Amount,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, input_token, output_token, amount,
		       status, tx_hash, execution_logs, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	var logs []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.InputToken,
		&order.OutputToken,
		&order.Amount,
		&order.Status,
		&order.TxHash,
		&logs,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := json.Unmarshal(logs, &order.ExecutionLog); err != nil {
		return nil, fmt.Errorf("failed to decode execution log: %w", err)
	}

	return &order, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, mut Mutation) (*AppendResult, error) {
	entry := domain.LogEntry{
		Status:    mut.Status,
		Message:   mut.Message,
		Timestamp: time.Now().UTC(),
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode log entry: %w", err)
	}

	// The status guard keeps terminal orders immutable even under
	// concurrent delivery of the same job.
	query := `
		UPDATE orders
		SET status = $1,
		    tx_hash = CASE WHEN $2 <> '' THEN $2 ELSE tx_hash END,
		    execution_logs = execution_logs || $3::jsonb,
		    updated_at = NOW()
		WHERE id = $4
		  AND status NOT IN ($5, $6)
		RETURNING jsonb_array_length(execution_logs)
	`

	var seq int
	err = s.db.QueryRowContext(
		ctx, query,
		mut.Status,
		mut.TxHash,
		entryJSON,
		id,
		domain.OrderStatusConfirmed,
		domain.OrderStatusFailed,
	).Scan(&seq)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyMiss(ctx, id)
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.logger.Debug("Order updated",
		slog.String("order_id", id),
		slog.String("status", mut.Status),
		slog.Int("log_length", seq),
	)

	return &AppendResult{Entry: entry, Seq: seq}, nil
}

// classifyMiss distinguishes an unknown order from a terminal one after a
// guarded UPDATE matched no rows.
func (s *PostgresStore) classifyMiss(ctx context.Context, id string) error {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("failed to inspect order: %w", err)
	}
	return domain.ErrOrderTerminal
}
