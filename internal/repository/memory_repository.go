package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/inboxlab/inboxd/internal/models"
)

// memoryMessageRepository is the volatile fallback backend: an in-process
// map pair (id -> record, dedup key -> id) guarded by a mutex. Nothing
// survives a process restart. Writes are unbounded; reads are capped by
// FindLimit like the durable backend.
type memoryMessageRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.Message
	keyToID map[string]string
}

// NewMemoryMessageRepository creates the volatile message repository.
func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{
		byID:    make(map[string]*models.Message),
		keyToID: make(map[string]string),
	}
}

func (r *memoryMessageRepository) UpsertIfAbsent(_ context.Context, key string, candidate *models.Message) (*models.Message, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, ok := r.keyToID[key]; ok {
		if existing, ok := r.byID[existingID]; ok {
			return clone(existing), false, nil
		}
	}

	record := clone(candidate)
	record.DedupKey = key

	r.byID[record.ID] = record
	r.keyToID[key] = record.ID

	return clone(record), true, nil
}

func (r *memoryMessageRepository) Find(_ context.Context, filter MessageFilter) ([]*models.Message, error) {
	r.mu.RLock()
	matched := make([]*models.Message, 0, len(r.byID))
	for _, msg := range r.byID {
		if filter.Status != nil && msg.Status != *filter.Status {
			continue
		}
		matched = append(matched, msg)
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].ReceivedAt.Equal(matched[j].ReceivedAt) {
			return matched[i].ReceivedAt.After(matched[j].ReceivedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if len(matched) > FindLimit {
		matched = matched[:FindLimit]
	}

	results := make([]*models.Message, 0, len(matched))
	for _, msg := range matched {
		c := clone(msg)
		c.Raw = nil
		results = append(results, c)
	}

	return results, nil
}

func (r *memoryMessageRepository) FindByIDs(_ context.Context, ids []string) ([]*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*models.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := r.byID[id]; ok {
			results = append(results, clone(msg))
		}
	}

	return results, nil
}

func (r *memoryMessageRepository) Update(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[msg.ID]; !ok {
		return ErrNotFound
	}

	r.byID[msg.ID] = clone(msg)
	return nil
}

func (r *memoryMessageRepository) DeleteByID(_ context.Context, id string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	delete(r.byID, id)
	// Dropping the key mapping means a provider redelivery after delete
	// recreates the record, matching the durable backend.
	delete(r.keyToID, msg.DedupKey)

	return clone(msg), nil
}

func (r *memoryMessageRepository) Ping(_ context.Context) error {
	return nil
}

func clone(msg *models.Message) *models.Message {
	c := *msg
	if msg.Raw != nil {
		c.Raw = append([]byte(nil), msg.Raw...)
	}
	return &c
}
