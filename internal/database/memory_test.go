package database

import (
	"context"
	"testing"
	"time"

	"bipv-docs/internal/config"
	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryWorldState(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	ns := Namespace("channel1", "basic-channel1")
	assert.Equal(t, "channel1/basic-channel1", ns)

	value, err := db.GetState(ctx, ns, "671")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, db.PutState(ctx, ns, "672", []byte(`{"b":1}`)))
	require.NoError(t, db.PutState(ctx, ns, "671", []byte(`{"a":1}`)))
	require.NoError(t, db.PutState(ctx, ns, "700", []byte(`{"c":1}`)))
	require.NoError(t, db.PutState(ctx, "channel2/basic-channel2", "671", []byte(`other`)))

	value, err = db.GetState(ctx, ns, "671")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(value))

	all, err := db.GetStateByRange(ctx, ns, "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"671", "672", "700"}, []string{all[0].Key, all[1].Key, all[2].Key})

	some, err := db.GetStateByRange(ctx, ns, "672", "700")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "672", some[0].Key)

	require.NoError(t, db.DeleteState(ctx, ns, "671"))
	value, err = db.GetState(ctx, ns, "671")
	require.NoError(t, err)
	assert.Nil(t, value)

	// Other namespaces are untouched.
	value, err = db.GetState(ctx, "channel2/basic-channel2", "671")
	require.NoError(t, err)
	assert.Equal(t, "other", string(value))
}

func TestMemoryStoredValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()

	buf := []byte("abc")
	require.NoError(t, db.PutState(ctx, "ns", "k", buf))
	buf[0] = 'x'

	value, err := db.GetState(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(value))
}

func TestMemoryDeletions(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	now := time.Now()

	for i, no := range []string{"1", "2", "3"} {
		require.NoError(t, db.RecordDeletion(ctx, &models.DeletedAsset{
			ID:         uuid.New(),
			Namespace:  "ns",
			DocumentNo: no,
			DeletedBy:  "User1",
			DeletedAt:  now.Add(time.Duration(i) * time.Second),
		}))
	}

	recs, err := db.GetDeletions(ctx, "ns")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "3", recs[0].DocumentNo)
	assert.Equal(t, "1", recs[2].DocumentNo)

	recs, err = db.GetDeletions(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()

	user := &models.User{ID: uuid.New(), Username: "User1", Organization: "org1", HashedPassword: "h"}
	require.NoError(t, db.SaveUser(ctx, user))

	err := db.SaveUser(ctx, &models.User{ID: uuid.New(), Username: "User1", Organization: "org2"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))

	found, err := db.GetUserByUsername(ctx, "User1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "org1", found.Organization)

	byID, err := db.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "User1", byID.Username)

	_, err = db.GetUserByUsername(ctx, "nobody")
	assert.True(t, utils.IsErrorCode(err, utils.ErrUserNotFound))
	_, err = db.GetUser(ctx, uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrUserNotFound))
}

func TestOpenMemoryAndUnknown(t *testing.T) {
	store, err := Open(&config.DatabaseConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryDB{}, store)

	_, err = Open(&config.DatabaseConfig{Type: "cassandra"})
	assert.Error(t, err)
}
