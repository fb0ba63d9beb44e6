//go:build integration

package document_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verdeck/internal/document"
	"verdeck/internal/verification/models"
	entitystore "verdeck/internal/verification/store/entity"
	id "verdeck/pkg/domain"
	"verdeck/pkg/testutil/containers"
)

type PostgresRecordStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *document.PostgresRecordStore
	entities *entitystore.Postgres
}

func TestPostgresRecordStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRecordStoreSuite))
}

func (s *PostgresRecordStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = document.NewPostgresRecordStore(s.postgres.DB)
	s.entities = entitystore.NewPostgres(s.postgres.DB)
}

func (s *PostgresRecordStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

// createEntity satisfies the foreign key every record row carries.
func (s *PostgresRecordStoreSuite) createEntity() id.EntityID {
	entity, err := models.NewEntity(
		id.NewEntityID(),
		id.KindOrganization,
		id.NewActorID(),
		models.Profile{Name: "Riverside Aid"},
		time.Now().UTC().Truncate(time.Microsecond),
	)
	s.Require().NoError(err)
	s.Require().NoError(s.entities.Create(context.Background(), entity))
	return entity.ID
}

func (s *PostgresRecordStoreSuite) record(entityID id.EntityID, docType document.Type, at time.Time) document.Record {
	return document.Record{
		ID:         id.NewDocumentID(),
		EntityID:   entityID,
		Type:       docType,
		StoredRef:  "blobs/" + entityID.String() + "/" + string(docType),
		SizeBytes:  2048,
		UploadedAt: at,
	}
}

func (s *PostgresRecordStoreSuite) TestCreateAndListByEntity() {
	ctx := context.Background()
	entityID := s.createEntity()
	base := time.Now().UTC().Truncate(time.Microsecond)

	later := s.record(entityID, document.TypeTaxCertificate, base.Add(time.Minute))
	earlier := s.record(entityID, document.TypeRegistrationCertificate, base)
	s.Require().NoError(s.store.Create(ctx, later))
	s.Require().NoError(s.store.Create(ctx, earlier))

	records, err := s.store.ListByEntity(ctx, entityID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(earlier.ID, records[0].ID, "oldest upload first")
	s.Equal(later.ID, records[1].ID)
	s.Equal(earlier.StoredRef, records[0].StoredRef)
	s.Equal(int64(2048), records[0].SizeBytes)
}

func (s *PostgresRecordStoreSuite) TestReplacementsKeepEveryVersion() {
	ctx := context.Background()
	entityID := s.createEntity()
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := s.record(entityID, document.TypeRepresentativeID, base)
	replacement := s.record(entityID, document.TypeRepresentativeID, base.Add(time.Second))
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, replacement))

	records, err := s.store.ListByEntity(ctx, entityID)
	s.Require().NoError(err)
	s.Len(records, 2, "record history is append-only")
}

func (s *PostgresRecordStoreSuite) TestListScopedToEntity() {
	ctx := context.Background()
	entityID := s.createEntity()
	otherID := s.createEntity()
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.Create(ctx, s.record(entityID, document.TypeTaxCertificate, now)))
	s.Require().NoError(s.store.Create(ctx, s.record(otherID, document.TypeTaxCertificate, now)))

	records, err := s.store.ListByEntity(ctx, entityID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(entityID, records[0].EntityID)

	empty, err := s.store.ListByEntity(ctx, id.NewEntityID())
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *PostgresRecordStoreSuite) TestCreateRequiresExistingEntity() {
	ctx := context.Background()
	orphan := s.record(id.NewEntityID(), document.TypeTaxCertificate, time.Now())
	s.Error(s.store.Create(ctx, orphan), "foreign key rejects records for unknown entities")
}
