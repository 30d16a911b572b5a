package database

import (
	"context"
	"sort"
	"sync"

	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"

	"github.com/google/uuid"
)

// MemoryDB keeps everything in process memory. It backs DB_TYPE=memory and the tests.
type MemoryDB struct {
	mu        sync.RWMutex
	states    map[string]map[string][]byte
	deletions map[string][]*models.DeletedAsset
	users     map[uuid.UUID]*models.User
	usernames map[string]uuid.UUID
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		states:    make(map[string]map[string][]byte),
		deletions: make(map[string][]*models.DeletedAsset),
		users:     make(map[uuid.UUID]*models.User),
		usernames: make(map[string]uuid.UUID),
	}
}

func (m *MemoryDB) GetState(ctx context.Context, namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.states[namespace][key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryDB) PutState(ctx context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[namespace]; !ok {
		m.states[namespace] = make(map[string][]byte)
	}
	m.states[namespace][key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryDB) DeleteState(ctx context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states[namespace], key)
	return nil
}

func (m *MemoryDB) GetStateByRange(ctx context.Context, namespace, startKey, endKey string) ([]KV, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []KV
	for key, value := range m.states[namespace] {
		if inRange(key, startKey, endKey) {
			result = append(result, KV{Key: key, Value: append([]byte(nil), value...)})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (m *MemoryDB) RecordDeletion(ctx context.Context, rec *models.DeletedAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletions[rec.Namespace] = append(m.deletions[rec.Namespace], rec)
	return nil
}

func (m *MemoryDB) GetDeletions(ctx context.Context, namespace string) ([]*models.DeletedAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.deletions[namespace]
	result := make([]*models.DeletedAsset, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		result = append(result, recs[i])
	}
	return result, nil
}

func (m *MemoryDB) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, taken := m.usernames[user.Username]; taken && id != user.ID {
		return utils.NewAppError(utils.ErrDuplicate, "Username already registered", nil)
	}

	stored := *user
	m.users[user.ID] = &stored
	m.usernames[user.Username] = user.ID
	return nil
}

func (m *MemoryDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	found := *user
	return &found, nil
}

func (m *MemoryDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usernames[username]
	if !ok {
		return nil, utils.NewUserNotFoundError(username)
	}
	found := *m.users[id]
	return &found, nil
}

func (m *MemoryDB) Close(ctx context.Context) error {
	return nil
}
