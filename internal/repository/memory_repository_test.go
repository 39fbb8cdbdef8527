package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxlab/inboxd/internal/models"
	"github.com/inboxlab/inboxd/internal/repository"
)

func newCandidate(sender, text string, receivedAt time.Time) *models.Message {
	now := time.Now().UTC()
	return &models.Message{
		ID:         uuid.New().String(),
		Sender:     sender,
		Text:       text,
		ReceivedAt: receivedAt,
		Status:     models.MessageStatusNew,
		Raw:        []byte(`{"from":"` + sender + `"}`),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestMemoryRepository_UpsertIfAbsent_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMessageRepository()
	receivedAt := time.Now().UTC()

	first, created, err := repo.UpsertIfAbsent(ctx, "key-1", newCandidate("2010000001", "hi", receivedAt))
	require.NoError(t, err)
	assert.True(t, created)

	// Redelivery under the same key returns the original record untouched,
	// no matter how often it is retried.
	for i := 0; i < 5; i++ {
		again, created, err := repo.UpsertIfAbsent(ctx, "key-1", newCandidate("2010000001", "hi", receivedAt))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, models.MessageStatusNew, again.Status)
	}

	all, err := repo.Find(ctx, repository.MessageFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryRepository_UpsertIfAbsent_DistinctKeys(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMessageRepository()
	receivedAt := time.Now().UTC()

	_, created, err := repo.UpsertIfAbsent(ctx, "key-1", newCandidate("2010000001", "hi", receivedAt))
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = repo.UpsertIfAbsent(ctx, "key-2", newCandidate("2010000002", "hello", receivedAt))
	require.NoError(t, err)
	assert.True(t, created)

	all, err := repo.Find(ctx, repository.MessageFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryRepository_UpsertIfAbsent_DoesNotResetRepliedRecord(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMessageRepository()
	receivedAt := time.Now().UTC()

	stored, _, err := repo.UpsertIfAbsent(ctx, "key-1", newCandidate("2010000001", "hi", receivedAt))
	require.NoError(t, err)

	stored.Status = models.MessageStatusReplied
	require.NoError(t, repo.Update(ctx, stored))

	// A late redelivery must not reset the already-processed record.
	again, created, err := repo.UpsertIfAbsent(ctx, "key-1", newCandidate("2010000001", "hi", receivedAt))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.MessageStatusReplied, again.Status)
}

func TestMemoryRepository_Find_StatusFilterAndOrdering(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMessageRepository()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	oldest := newCandidate("2010000001", "first", base)
	middle := newCandidate("2010000002", "second", base.Add(time.Minute))
	newest := newCandidate("2010000003", "third", base.Add(2*time.Minute))

	for _, candidate := range []*models.Message{oldest, middle, newest} {
		_, _, err := repo.UpsertIfAbsent(ctx, candidate.Sender, candidate)
		require.NoError(t, err)
	}

	replied, _, err := repo.UpsertIfAbsent(ctx, "replied-key", newCandidate("2010000004", "done", base.Add(3*time.Minute)))
	require.NoError(t, err)
	replied.Status = models.MessageStatusReplied
	require.NoError(t, repo.Update(ctx, replied))

	all, err := repo.Find(ctx, repository.MessageFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, replied.ID, all[0].ID)
	assert.Equal(t, newest.ID, all[1].ID)
	assert.Equal(t, middle.ID, all[2].ID)
	assert.Equal(t, oldest.ID, all[3].ID)

	statusNew := models.MessageStatusNew
	onlyNew, err := repo.Find(ctx, repository.MessageFilter{Status: &statusNew})
	require.NoError(t, err)
	assert.Len(t, onlyNew, 3)
	for _, msg := range onlyNew {
		assert.Equal(t, models.MessageStatusNew, msg.Status)
	}

	statusReplied := models.MessageStatusReplied
	onlyReplied, err := repo.Find(ctx, repository.MessageFilter{Status: &statusReplied})
	require.NoError(t, err)
	require.Len(t, onlyReplied, 1)
	assert.Equal(t, replied.ID, onlyReplied[0].ID)
}

func TestMemoryRepository_Find_CapsAtLimitAndExcludesRaw(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMessageRepository()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < repository.FindLimit+20; i++ {
		candidate := newCandidate("2010000001", fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Second))
		_, _, err := repo.UpsertIfAbsent(ctx, fmt.Sprintf("key-%d", i), candidate)
		require.NoError(t, err)
	}

	all, err := repo.Find(ctx, repository.MessageFilter{})
	require.NoError(t, err)
	assert.Len(t, all, repository.FindLimit)

	for _, msg := range all {
		assert.Nil(t, msg.Raw)
	}

	// Newest-received first: the highest-indexed message leads.
	assert.Equal(t, fmt.Sprintf("msg-%d", repository.FindLimit+19), all[0].Text)
}

func TestMemoryRepository_FindByIDs(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMessageRepository()
	receivedAt := time.Now().UTC()

	stored, _, err := repo.UpsertIfAbsent(ctx, "key-1", newCandidate("2010000001", "hi", receivedAt))
	require.NoError(t, err)

	found, err := repo.FindByIDs(ctx, []string{stored.ID, "no-such-id"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stored.ID, found[0].ID)

	found, err = repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemoryRepository_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMessageRepository()

	missing := newCandidate("2010000001", "hi", time.Now().UTC())
	err := repo.Update(ctx, missing)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryRepository_DeleteByID(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMessageRepository()
	receivedAt := time.Now().UTC()

	stored, _, err := repo.UpsertIfAbsent(ctx, "key-1", newCandidate("2010000001", "hi", receivedAt))
	require.NoError(t, err)

	deleted, err := repo.DeleteByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, deleted.ID)

	_, err = repo.DeleteByID(ctx, stored.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	all, err := repo.Find(ctx, repository.MessageFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	found, err := repo.FindByIDs(ctx, []string{stored.ID})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemoryRepository_DeleteByID_FreesDedupKey(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMessageRepository()
	receivedAt := time.Now().UTC()

	stored, _, err := repo.UpsertIfAbsent(ctx, "key-1", newCandidate("2010000001", "hi", receivedAt))
	require.NoError(t, err)

	_, err = repo.DeleteByID(ctx, stored.ID)
	require.NoError(t, err)

	// A redelivery after delete recreates the record, matching the durable
	// backend where the unique row is gone.
	recreated, created, err := repo.UpsertIfAbsent(ctx, "key-1", newCandidate("2010000001", "hi", receivedAt))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, stored.ID, recreated.ID)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMessageRepository()
	receivedAt := time.Now().UTC()

	stored, _, err := repo.UpsertIfAbsent(ctx, "key-1", newCandidate("2010000001", "hi", receivedAt))
	require.NoError(t, err)

	// Mutating the returned record must not leak into the store without
	// an explicit Update.
	stored.Status = models.MessageStatusReplied

	found, err := repo.FindByIDs(ctx, []string{stored.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, models.MessageStatusNew, found[0].Status)
}
