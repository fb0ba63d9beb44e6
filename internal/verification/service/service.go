// Package service implements the verification engine: the one authoritative
// owner of entity readiness state, status transitions, and the audit trail.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"verdeck/internal/document"
	"verdeck/internal/notification"
	vmetrics "verdeck/internal/verification/metrics"
	"verdeck/internal/verification/models"
	"verdeck/internal/verification/token"
	id "verdeck/pkg/domain"
	dErrors "verdeck/pkg/domain-errors"
	"verdeck/pkg/platform/audit"
	"verdeck/pkg/platform/sentinel"
	txcontext "verdeck/pkg/platform/tx"
)

// EntityStore persists verification entities. Execute must run validate and
// mutate atomically with respect to concurrent Executes on the same entity.
type EntityStore interface {
	Create(ctx context.Context, entity *models.Entity) error
	FindByID(ctx context.Context, entityID id.EntityID) (*models.Entity, error)
	Execute(ctx context.Context, entityID id.EntityID, validate func(*models.Entity) error, mutate func(*models.Entity)) (*models.Entity, error)
	ListSubmitted(ctx context.Context, kind id.EntityKind) ([]*models.Entity, error)
}

// StoreTx provides the transactional boundary for one engine operation.
// The postgres implementation wraps a database transaction so the entity
// mutation, document metadata, and audit append commit or fail together;
// the in-memory implementation just invokes the function.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type inMemoryStoreTx struct{}

func (inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// NewInMemoryStoreTx returns a pass-through transaction runner for memory
// backed deployments and unit tests.
func NewInMemoryStoreTx() StoreTx { return inMemoryStoreTx{} }

const defaultTxTimeout = 5 * time.Second

type postgresStoreTx struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresStoreTx wraps engine operations in a SQL transaction carried
// through context for the stores.
func NewPostgresStoreTx(db *sql.DB) StoreTx {
	return &postgresStoreTx{db: db, timeout: defaultTxTimeout}
}

func (t *postgresStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}

// Service is the verification engine.
type Service struct {
	entities  EntityStore
	documents document.RecordStore
	blobs     document.BlobStore
	required  document.RequiredSets
	tokens    *token.Manager
	auditLog  audit.Store
	notifier  notification.Notifier
	tx        StoreTx

	logger  *slog.Logger
	metrics *vmetrics.Metrics
	tracer  trace.Tracer

	// In-process per-entity serialization. The postgres row lock covers
	// cross-process writers; this covers the memory store and keeps the
	// audit append ordered with the transition it records.
	entityLocks sync.Map // id.EntityID -> *sync.Mutex

	storageRetries int
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *vmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTx(tx StoreTx) Option {
	return func(s *Service) { s.tx = tx }
}

// WithStorageRetries overrides the bounded retry count for blob writes.
func WithStorageRetries(n int) Option {
	return func(s *Service) { s.storageRetries = n }
}

// New constructs the verification engine.
func New(
	entities EntityStore,
	documents document.RecordStore,
	blobs document.BlobStore,
	required document.RequiredSets,
	tokens *token.Manager,
	auditLog audit.Store,
	notifier notification.Notifier,
	opts ...Option,
) *Service {
	s := &Service{
		entities:       entities,
		documents:      documents,
		blobs:          blobs,
		required:       required,
		tokens:         tokens,
		auditLog:       auditLog,
		notifier:       notifier,
		tx:             NewInMemoryStoreTx(),
		logger:         slog.Default(),
		tracer:         otel.Tracer("verdeck/verification"),
		storageRetries: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lockEntity(entityID id.EntityID) func() {
	lock, _ := s.entityLocks.LoadOrStore(entityID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// wrapEntityErr translates store sentinels into domain errors; domain errors
// pass through untouched.
func wrapEntityErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "entity not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "entity already exists")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "entity store failure")
}

// withRetry runs fn up to the configured attempt budget, backing off between
// attempts. Used for external collaborator calls (blob store).
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.storageRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == s.storageRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return err
}
