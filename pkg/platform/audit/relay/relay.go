// Package relay drains the audit outbox into Kafka. The verification engine
// writes outbox rows inside its own transactions; the relay publishes them
// asynchronously, so a broker outage never blocks a state transition.
package relay

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Producer publishes one outbox payload. Keyed by entity so all entries for
// one entity land on the same partition, preserving per-entity order.
type Producer interface {
	Produce(ctx context.Context, key string, payload []byte) error
}

// Relay polls unpublished outbox rows and hands them to the producer.
type Relay struct {
	db       *sql.DB
	producer Producer
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// Option configures the Relay.
type Option func(*Relay)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

// WithBatchSize overrides the per-poll row limit.
func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batch = n }
}

func New(db *sql.DB, producer Producer, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		db:       db,
		producer: producer,
		logger:   logger,
		interval: 500 * time.Millisecond,
		batch:    100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until the context is canceled. Publish failures are logged and
// retried on the next tick; rows stay unpublished until the produce succeeds.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id       uuid.UUID
	entityID uuid.UUID
	payload  []byte
}

// DrainOnce publishes one batch of unpublished rows in insert order.
// SKIP LOCKED lets multiple relay instances share the table without
// double-publishing; consumers must still tolerate redelivery because a
// crash between produce and mark re-sends the row.
func (r *Relay) DrainOnce(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
		SELECT id, entity_id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.QueryContext(ctx, query, r.batch)
	if err != nil {
		return fmt.Errorf("query outbox: %w", err)
	}
	var pending []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.entityID, &row.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate outbox rows: %w", err)
	}
	if len(pending) == 0 {
		return tx.Commit()
	}

	for _, row := range pending {
		if err := r.producer.Produce(ctx, row.entityID.String(), row.payload); err != nil {
			return fmt.Errorf("produce outbox row %s: %w", row.id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE audit_outbox SET published_at = $1 WHERE id = $2`,
			time.Now(), row.id,
		); err != nil {
			return fmt.Errorf("mark outbox row %s published: %w", row.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outbox batch: %w", err)
	}
	r.logger.DebugContext(ctx, "audit outbox batch published", "count", len(pending))
	return nil
}
