package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "verdeck/pkg/domain"
	audit "verdeck/pkg/platform/audit"
	txcontext "verdeck/pkg/platform/tx"
)

// Store implements audit.Store on PostgreSQL. Each append writes the entry
// row for querying plus an outbox row that the relay publishes to Kafka.
// Both inserts join the caller's transaction when one is in context, which
// is how an audit append stays atomic with the transition it records.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Entry so consumers can unmarshal directly.
type outboxPayload struct {
	ID        string `json:"id"`
	EntityID  string `json:"entity_id"`
	Action    string `json:"action"`
	ActorID   string `json:"actor_id,omitempty"`
	Notes     string `json:"notes,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	entryID := uuid.New()

	var actorID *uuid.UUID
	if !entry.ActorID.IsNil() {
		a := uuid.UUID(entry.ActorID)
		actorID = &a
	}

	const insertEntry = `
		INSERT INTO audit_entries (id, entity_id, action, actor_id, notes, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, insertEntry,
		entryID,
		uuid.UUID(entry.EntityID),
		string(entry.Action),
		actorID,
		entry.Notes,
		entry.RequestID,
		entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	payload := outboxPayload{
		ID:        entryID.String(),
		EntityID:  entry.EntityID.String(),
		Action:    string(entry.Action),
		Notes:     entry.Notes,
		RequestID: entry.RequestID,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339Nano),
	}
	if actorID != nil {
		payload.ActorID = actorID.String()
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	const insertOutbox = `
		INSERT INTO audit_outbox (id, entity_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, insertOutbox,
		uuid.New(),
		uuid.UUID(entry.EntityID),
		string(entry.Action),
		payloadBytes,
		time.Now(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByEntity returns the entity's trail oldest first. The secondary sort on
// id makes the order of same-timestamp entries stable across reads; ids are
// random, so it carries no insert-order meaning.
func (s *Store) ListByEntity(ctx context.Context, entityID id.EntityID) ([]audit.Entry, error) {
	const query = `
		SELECT entity_id, action, actor_id, notes, request_id, created_at
		FROM audit_entries
		WHERE entity_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(entityID))
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry    audit.Entry
			entityID uuid.UUID
			action   string
			actorID  *uuid.UUID
		)
		if err := rows.Scan(&entityID, &action, &actorID, &entry.Notes, &entry.RequestID, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.EntityID = id.EntityID(entityID)
		entry.Action = audit.Action(action)
		if actorID != nil {
			entry.ActorID = id.ActorID(*actorID)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
