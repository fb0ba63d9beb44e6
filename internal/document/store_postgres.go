package document

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "verdeck/pkg/domain"
	txcontext "verdeck/pkg/platform/tx"
)

// PostgresRecordStore persists document metadata. Joins the caller's
// transaction when one is in context so a metadata insert commits together
// with the audit entry recording the upload.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

func (s *PostgresRecordStore) execer(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresRecordStore) Create(ctx context.Context, record Record) error {
	const query = `
		INSERT INTO document_records (id, entity_id, document_type, stored_ref, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.EntityID),
		string(record.Type),
		record.StoredRef,
		record.SizeBytes,
		record.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document record: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) ListByEntity(ctx context.Context, entityID id.EntityID) ([]Record, error) {
	const query = `
		SELECT id, entity_id, document_type, stored_ref, size_bytes, uploaded_at
		FROM document_records
		WHERE entity_id = $1
		ORDER BY uploaded_at ASC, id ASC
	`
	var rows *sql.Rows
	var err error
	if tx, ok := txcontext.From(ctx); ok {
		rows, err = tx.QueryContext(ctx, query, uuid.UUID(entityID))
	} else {
		rows, err = s.db.QueryContext(ctx, query, uuid.UUID(entityID))
	}
	if err != nil {
		return nil, fmt.Errorf("query document records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			record   Record
			recordID uuid.UUID
			owner    uuid.UUID
			docType  string
		)
		if err := rows.Scan(&recordID, &owner, &docType, &record.StoredRef, &record.SizeBytes, &record.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document record: %w", err)
		}
		record.ID = id.DocumentID(recordID)
		record.EntityID = id.EntityID(owner)
		record.Type = Type(docType)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document records: %w", err)
	}
	return records, nil
}
