package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mindful-resolve/internal/model"
	sqliteClient "mindful-resolve/internal/platform/sqlite"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqliteClient.New(context.Background(), filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Session{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestSessionRepositoryCreateAndGet(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	err := repo.Create(ctx, &model.Session{
		SessionCode:         "AB12CD",
		Partner1Name:        "Sam",
		Partner1Perspective: "I felt ignored",
	})
	require.NoError(t, err)

	got, err := repo.GetByCode(ctx, "AB12CD")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sam", got.Partner1Name)
	assert.Equal(t, "I felt ignored", got.Partner1Perspective)
	assert.Empty(t, got.Partner2Perspective)
	assert.False(t, got.HasPartner2())
}

func TestSessionRepositoryGetMissing(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	got, err := repo.GetByCode(context.Background(), "ZZZZZZ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRepositoryCreateDuplicate(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Session{SessionCode: "AB12CD", Partner1Perspective: "first"}))
	err := repo.Create(ctx, &model.Session{SessionCode: "AB12CD", Partner1Perspective: "second"})
	require.ErrorIs(t, err, ErrDuplicateCode)

	got, err := repo.GetByCode(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Partner1Perspective)
}

func TestSessionRepositoryUpdatePartner2Once(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.Session{SessionCode: "AB12CD", Partner1Perspective: "I felt ignored"}))

	require.NoError(t, repo.UpdatePartner2(ctx, "AB12CD", "Alex", "I was overwhelmed"))
	err := repo.UpdatePartner2(ctx, "AB12CD", "Eve", "me too")
	require.ErrorIs(t, err, ErrConflict)

	got, err := repo.GetByCode(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "Alex", got.Partner2Name)
	assert.Equal(t, "I was overwhelmed", got.Partner2Perspective)
	assert.True(t, got.Complete())
}

func TestSessionRepositoryUpdatePartner2Missing(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	err := repo.UpdatePartner2(context.Background(), "NOPE00", "Alex", "text")
	require.ErrorIs(t, err, ErrConflict)
}

func TestSessionRepositoryUpdateSolutionOnce(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.Session{SessionCode: "AB12CD", Partner1Perspective: "a"}))
	require.NoError(t, repo.UpdatePartner2(ctx, "AB12CD", "", "b"))

	require.NoError(t, repo.UpdateSolution(ctx, "AB12CD", "talk it through"))
	require.ErrorIs(t, repo.UpdateSolution(ctx, "AB12CD", "something else"), ErrConflict)

	got, err := repo.GetByCode(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "talk it through", got.Solution)
}

func TestSessionRepositoryDeleteCreatedBefore(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &model.Session{
		SessionCode:         "OLD111",
		Partner1Perspective: "old",
		CreatedAt:           now.Add(-48 * time.Hour),
	}))
	require.NoError(t, repo.Create(ctx, &model.Session{
		SessionCode:         "NEW222",
		Partner1Perspective: "new",
		CreatedAt:           now.Add(-time.Hour),
	}))

	deleted, err := repo.DeleteCreatedBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	old, err := repo.GetByCode(ctx, "OLD111")
	require.NoError(t, err)
	assert.Nil(t, old)

	fresh, err := repo.GetByCode(ctx, "NEW222")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}
