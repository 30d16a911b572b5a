package database

import (
	"context"
	"time"

	"bipv-docs/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StateDocument represents the MongoDB schema for one world-state entry.
type StateDocument struct {
	ID        string    `bson:"_id"` // namespace + "\x00" + key
	Namespace string    `bson:"namespace"`
	Key       string    `bson:"key"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedat"`
}

// DeletionDocument represents the MongoDB schema for a deleted asset.
type DeletionDocument struct {
	ID         string        `bson:"_id"`
	Namespace  string        `bson:"namespace"`
	DocumentNo string        `bson:"documentno"`
	Asset      *models.Asset `bson:"asset,omitempty"`
	DeletedBy  string        `bson:"deletedby"`
	DeletedAt  time.Time     `bson:"deletedat"`
}

func stateID(namespace, key string) string {
	return namespace + "\x00" + key
}

func (m *MongoDB) GetState(ctx context.Context, namespace, key string) ([]byte, error) {
	var doc StateDocument
	err := m.States.FindOne(ctx, bson.M{"_id": stateID(namespace, key)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get state %s", key)
	}
	return doc.Value, nil
}

func (m *MongoDB) PutState(ctx context.Context, namespace, key string, value []byte) error {
	doc := StateDocument{
		ID:        stateID(namespace, key),
		Namespace: namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}

	if _, err := m.States.UpdateOne(ctx, filter, update, opts); err != nil {
		return errors.Wrapf(err, "failed to put state %s", key)
	}
	return nil
}

func (m *MongoDB) DeleteState(ctx context.Context, namespace, key string) error {
	if _, err := m.States.DeleteOne(ctx, bson.M{"_id": stateID(namespace, key)}); err != nil {
		return errors.Wrapf(err, "failed to delete state %s", key)
	}
	return nil
}

func (m *MongoDB) GetStateByRange(ctx context.Context, namespace, startKey, endKey string) ([]KV, error) {
	filter := bson.M{"namespace": namespace}
	keyFilter := bson.M{}
	if startKey != "" {
		keyFilter["$gte"] = startKey
	}
	if endKey != "" {
		keyFilter["$lt"] = endKey
	}
	if len(keyFilter) > 0 {
		filter["key"] = keyFilter
	}

	opts := options.Find().SetSort(bson.D{{Key: "key", Value: 1}})
	cursor, err := m.States.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "range query failed")
	}
	defer cursor.Close(ctx)

	var result []KV
	for cursor.Next(ctx) {
		var doc StateDocument
		if err := cursor.Decode(&doc); err != nil {
			logrus.WithError(err).Warn("Error decoding state document")
			continue
		}
		result = append(result, KV{Key: doc.Key, Value: doc.Value})
	}

	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "cursor iteration failed")
	}
	return result, nil
}

func (m *MongoDB) RecordDeletion(ctx context.Context, rec *models.DeletedAsset) error {
	doc := DeletionDocument{
		ID:         rec.ID.String(),
		Namespace:  rec.Namespace,
		DocumentNo: rec.DocumentNo,
		Asset:      rec.Asset,
		DeletedBy:  rec.DeletedBy,
		DeletedAt:  rec.DeletedAt,
	}

	if _, err := m.Deletions.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "failed to record deletion")
	}
	return nil
}

func (m *MongoDB) GetDeletions(ctx context.Context, namespace string) ([]*models.DeletedAsset, error) {
	opts := options.Find().SetSort(bson.D{{Key: "deletedat", Value: -1}})
	cursor, err := m.Deletions.Find(ctx, bson.M{"namespace": namespace}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get deletions")
	}
	defer cursor.Close(ctx)

	result := make([]*models.DeletedAsset, 0)
	for cursor.Next(ctx) {
		var doc DeletionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to decode deletion")
		}

		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid deletion ID %s", doc.ID)
		}

		result = append(result, &models.DeletedAsset{
			ID:         id,
			Namespace:  doc.Namespace,
			DocumentNo: doc.DocumentNo,
			Asset:      doc.Asset,
			DeletedBy:  doc.DeletedBy,
			DeletedAt:  doc.DeletedAt,
		})
	}

	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "cursor iteration failed")
	}
	return result, nil
}
