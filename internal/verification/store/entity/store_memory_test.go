package entity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verdeck/internal/verification/models"
	id "verdeck/pkg/domain"
	"verdeck/pkg/platform/sentinel"
)

func storedEntity(t *testing.T, store *InMemory) *models.Entity {
	t.Helper()
	entity, err := models.NewEntity(id.NewEntityID(), id.KindInstitution, id.NewActorID(),
		models.Profile{Name: "Harbor Trust"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), entity))
	return entity
}

func TestInMemoryCreate(t *testing.T) {
	store := NewInMemory()
	entity := storedEntity(t, store)

	t.Run("duplicate id conflicts", func(t *testing.T) {
		err := store.Create(context.Background(), entity)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("stored copy is isolated from the caller", func(t *testing.T) {
		entity.Profile.Name = "Mutated After Create"
		found, err := store.FindByID(context.Background(), entity.ID)
		require.NoError(t, err)
		assert.Equal(t, "Harbor Trust", found.Profile.Name)
	})
}

func TestInMemoryFindByID(t *testing.T) {
	store := NewInMemory()
	_, err := store.FindByID(context.Background(), id.NewEntityID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("validate failure leaves the entity untouched", func(t *testing.T) {
		store := NewInMemory()
		entity := storedEntity(t, store)

		_, err := store.Execute(ctx, entity.ID,
			func(e *models.Entity) error { return sentinel.ErrInvalidState },
			func(e *models.Entity) { e.Status = models.StatusVerified },
		)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)

		found, err := store.FindByID(ctx, entity.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, found.Status)
	})

	t.Run("mutation persists when validate passes", func(t *testing.T) {
		store := NewInMemory()
		entity := storedEntity(t, store)
		now := time.Now()

		updated, err := store.Execute(ctx, entity.ID,
			func(e *models.Entity) error { return nil },
			func(e *models.Entity) { e.ApplyEmailVerified(now) },
		)
		require.NoError(t, err)
		assert.True(t, updated.EmailVerified)

		found, err := store.FindByID(ctx, entity.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusEmailVerified, found.Status)
	})

	t.Run("unknown entity", func(t *testing.T) {
		store := NewInMemory()
		_, err := store.Execute(ctx, id.NewEntityID(),
			func(e *models.Entity) error { return nil },
			func(e *models.Entity) {},
		)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

// Concurrent Executes on one entity must serialize: with a guard that only
// admits the first transition, exactly one goroutine wins.
func TestInMemoryExecuteSerializes(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	entity := storedEntity(t, store)
	now := time.Now()

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Execute(ctx, entity.ID,
				func(e *models.Entity) error {
					if e.Status != models.StatusPending {
						return sentinel.ErrInvalidState
					}
					return nil
				},
				func(e *models.Entity) { e.ApplySubmission(now) },
			)
			if err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	assert.Equal(t, 1, won)
}

func TestInMemoryListSubmitted(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	submit := func(kind id.EntityKind, at time.Time) *models.Entity {
		entity, err := models.NewEntity(id.NewEntityID(), kind, id.NewActorID(),
			models.Profile{Name: "Queue Member"}, at)
		require.NoError(t, err)
		entity.ApplyEmailVerified(at)
		entity.ApplySubmission(at)
		require.NoError(t, store.Create(ctx, entity))
		return entity
	}

	base := time.Now()
	second := submit(id.KindInstitution, base.Add(time.Minute))
	first := submit(id.KindOrganization, base)
	storedEntity(t, store) // pending, must not appear

	queue, err := store.ListSubmitted(ctx, "")
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, first.ID, queue[0].ID)
	assert.Equal(t, second.ID, queue[1].ID)

	institutions, err := store.ListSubmitted(ctx, id.KindInstitution)
	require.NoError(t, err)
	require.Len(t, institutions, 1)
	assert.Equal(t, second.ID, institutions[0].ID)
}
