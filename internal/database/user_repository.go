// internal/database/user_repository.go
package database

import (
	"context"
	"time"

	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserDocument represents the MongoDB schema for a user
type UserDocument struct {
	ID             string    `bson:"_id"`            // MongoDB primary key
	Username       string    `bson:"username"`       // Unique login name
	Organization   string    `bson:"organization"`   // Member organization, e.g. org1
	HashedPassword string    `bson:"hashedPassword"` // bcrypt hash
	CreatedAt      time.Time `bson:"createdAt"`      // Account creation timestamp
}

// SaveUser inserts a user; a taken username is a DUPLICATE error.
func (m *MongoDB) SaveUser(ctx context.Context, user *models.User) error {
	doc := UserDocument{
		ID:             user.ID.String(),
		Username:       user.Username,
		Organization:   user.Organization,
		HashedPassword: user.HashedPassword,
		CreatedAt:      user.CreatedAt,
	}

	_, err := m.Users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return utils.NewAppError(utils.ErrDuplicate, "Username already registered", err)
	}
	if err != nil {
		return errors.Wrap(err, "failed to save user")
	}
	return nil
}

// GetUser retrieves a user from MongoDB by their ID
func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id.String()}, id.String())
}

// GetUserByUsername retrieves a user from MongoDB by their username
func (m *MongoDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"username": username}, username)
}

func (m *MongoDB) findUser(ctx context.Context, filter bson.M, label string) (*models.User, error) {
	var doc UserDocument

	err := m.Users.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewUserNotFoundError(label)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query user")
	}

	userID, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid user ID in database")
	}

	return &models.User{
		ID:             userID,
		Username:       doc.Username,
		Organization:   doc.Organization,
		HashedPassword: doc.HashedPassword,
		CreatedAt:      doc.CreatedAt,
	}, nil
}
