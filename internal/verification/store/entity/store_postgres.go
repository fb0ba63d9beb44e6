package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"verdeck/internal/verification/models"
	id "verdeck/pkg/domain"
	"verdeck/pkg/platform/sentinel"
	txcontext "verdeck/pkg/platform/tx"
)

// Postgres persists entities in the entities table. Execute relies on
// SELECT ... FOR UPDATE inside the caller's transaction: the row lock is the
// per-entity lock, so validate-then-mutate cannot race a concurrent writer.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Postgres) runner(ctx context.Context) queryRower {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const entityColumns = `
	id, kind, name, contact_email, phone, website, address, description,
	status, email_verified, documents_verified,
	review_notes, reviewed_by, reviewed_at, submitted_at,
	owner_id, created_at, updated_at
`

func (s *Postgres) Create(ctx context.Context, entity *models.Entity) error {
	const query = `
		INSERT INTO entities (
			id, kind, name, contact_email, phone, website, address, description,
			status, email_verified, documents_verified,
			review_notes, reviewed_by, reviewed_at, submitted_at,
			owner_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := s.runner(ctx).ExecContext(ctx, query, insertArgs(entity)...)
	if err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func insertArgs(e *models.Entity) []any {
	var reviewedBy *uuid.UUID
	if e.ReviewedBy != nil {
		rb := uuid.UUID(*e.ReviewedBy)
		reviewedBy = &rb
	}
	return []any{
		uuid.UUID(e.ID), string(e.Kind),
		e.Profile.Name, e.Profile.ContactEmail, e.Profile.Phone,
		e.Profile.Website, e.Profile.Address, e.Profile.Description,
		string(e.Status), e.EmailVerified, e.DocumentsVerified,
		e.ReviewNotes, reviewedBy, e.ReviewedAt, e.SubmittedAt,
		uuid.UUID(e.OwnerID), e.CreatedAt, e.UpdatedAt,
	}
}

func (s *Postgres) FindByID(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = $1`
	row := s.runner(ctx).QueryRowContext(ctx, query, uuid.UUID(entityID))
	return scanEntity(row)
}

// Execute locks the entity row for the remainder of the transaction, runs
// validate on the current state, applies mutate, and writes the row back.
// Must be called inside a transaction (the engine's RunInTx provides one);
// without a transaction FOR UPDATE degrades to a plain read.
func (s *Postgres) Execute(ctx context.Context, entityID id.EntityID, validate func(*models.Entity) error, mutate func(*models.Entity)) (*models.Entity, error) {
	runner := s.runner(ctx)
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = $1 FOR UPDATE`
	entity, err := scanEntity(runner.QueryRowContext(ctx, query, uuid.UUID(entityID)))
	if err != nil {
		return nil, err
	}

	if err := validate(entity); err != nil {
		return nil, err
	}
	mutate(entity)

	const update = `
		UPDATE entities SET
			name = $2, contact_email = $3, phone = $4, website = $5,
			address = $6, description = $7,
			status = $8, email_verified = $9, documents_verified = $10,
			review_notes = $11, reviewed_by = $12, reviewed_at = $13,
			submitted_at = $14, updated_at = $15
		WHERE id = $1
	`
	var reviewedBy *uuid.UUID
	if entity.ReviewedBy != nil {
		rb := uuid.UUID(*entity.ReviewedBy)
		reviewedBy = &rb
	}
	if _, err := runner.ExecContext(ctx, update,
		uuid.UUID(entity.ID),
		entity.Profile.Name, entity.Profile.ContactEmail, entity.Profile.Phone,
		entity.Profile.Website, entity.Profile.Address, entity.Profile.Description,
		string(entity.Status), entity.EmailVerified, entity.DocumentsVerified,
		entity.ReviewNotes, reviewedBy, entity.ReviewedAt,
		entity.SubmittedAt, entity.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}
	return entity, nil
}

// ListSubmitted returns the review queue: submitted entities, oldest
// submission first. Kind filters when non-empty.
func (s *Postgres) ListSubmitted(ctx context.Context, kind id.EntityKind) ([]*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE status = $1`
	args := []any{string(models.StatusSubmitted)}
	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, string(kind))
	}
	query += ` ORDER BY submitted_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query review queue: %w", err)
	}
	defer rows.Close()

	var entities []*models.Entity
	for rows.Next() {
		entity, err := scanEntityRow(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review queue: %w", err)
	}
	return entities, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row *sql.Row) (*models.Entity, error) {
	entity, err := scanEntityRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return entity, err
}

func scanEntityRow(row rowScanner) (*models.Entity, error) {
	var (
		e          models.Entity
		entityID   uuid.UUID
		ownerID    uuid.UUID
		kind       string
		status     string
		reviewedBy *uuid.UUID
	)
	err := row.Scan(
		&entityID, &kind,
		&e.Profile.Name, &e.Profile.ContactEmail, &e.Profile.Phone,
		&e.Profile.Website, &e.Profile.Address, &e.Profile.Description,
		&status, &e.EmailVerified, &e.DocumentsVerified,
		&e.ReviewNotes, &reviewedBy, &e.ReviewedAt, &e.SubmittedAt,
		&ownerID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan entity: %w", err)
	}
	e.ID = id.EntityID(entityID)
	e.Kind = id.EntityKind(kind)
	e.Status = models.Status(status)
	e.OwnerID = id.ActorID(ownerID)
	if reviewedBy != nil {
		rb := id.ActorID(*reviewedBy)
		e.ReviewedBy = &rb
	}
	return &e, nil
}
