package database

import (
	"context"

	"bipv-docs/internal/models"

	"github.com/google/uuid"
)

// KV is one entry of a world-state range scan.
type KV struct {
	Key   string
	Value []byte
}

// WorldState is the key/value state of a ledger. Keys are scoped by namespace, one
// per channel and chaincode.
type WorldState interface {
	// GetState returns nil, nil when the key is absent.
	GetState(ctx context.Context, namespace, key string) ([]byte, error)
	PutState(ctx context.Context, namespace, key string, value []byte) error
	DeleteState(ctx context.Context, namespace, key string) error
	// GetStateByRange returns keys in [startKey, endKey) in ascending order. An empty
	// bound is open.
	GetStateByRange(ctx context.Context, namespace, startKey, endKey string) ([]KV, error)
}

// DeletionLog keeps the documents removed from each namespace.
type DeletionLog interface {
	RecordDeletion(ctx context.Context, rec *models.DeletedAsset) error
	// GetDeletions returns newest first.
	GetDeletions(ctx context.Context, namespace string) ([]*models.DeletedAsset, error)
}

// UserStore persists registered users. Usernames are unique.
type UserStore interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Store is everything the engine persists.
type Store interface {
	WorldState
	DeletionLog
	UserStore
	Close(ctx context.Context) error
}

// Namespace scopes a channel's chaincode state.
func Namespace(channel, chaincode string) string {
	return channel + "/" + chaincode
}

func inRange(key, startKey, endKey string) bool {
	if startKey != "" && key < startKey {
		return false
	}
	if endKey != "" && key >= endKey {
		return false
	}
	return true
}
