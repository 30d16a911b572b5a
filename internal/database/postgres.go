// internal/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB *sqlx.DB
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to PostgreSQL")
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Ping the database to verify connection
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping PostgreSQL")
	}

	logrus.Info("Successfully connected to PostgreSQL")

	return &PostgresDB{
		DB: db,
	}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close(ctx context.Context) error {
	logrus.Info("Closing PostgreSQL connection")
	return p.DB.Close()
}

// InitializeTables creates all necessary tables if they don't exist
func (p *PostgresDB) InitializeTables(ctx context.Context) error {
	// Key order within a namespace must be byte order to match the other backends.
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS world_state (
			namespace VARCHAR(200) NOT NULL,
			key TEXT COLLATE "C" NOT NULL,
			value BYTEA NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (namespace, key)
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to create world_state table")
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS deleted_assets (
			id UUID PRIMARY KEY,
			namespace VARCHAR(200) NOT NULL,
			document_no TEXT NOT NULL,
			asset JSONB,
			deleted_by VARCHAR(100) NOT NULL,
			deleted_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to create deleted_assets table")
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(100) UNIQUE NOT NULL,
			organization VARCHAR(50) NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to create users table")
	}

	return nil
}

func (p *PostgresDB) GetState(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := p.DB.GetContext(ctx, &value, `SELECT value FROM world_state WHERE namespace = $1 AND key = $2`, namespace, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get state %s", key)
	}
	return value, nil
}

func (p *PostgresDB) PutState(ctx context.Context, namespace, key string, value []byte) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO world_state (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, namespace, key, value)
	if err != nil {
		return errors.Wrapf(err, "failed to put state %s", key)
	}
	return nil
}

func (p *PostgresDB) DeleteState(ctx context.Context, namespace, key string) error {
	_, err := p.DB.ExecContext(ctx, `DELETE FROM world_state WHERE namespace = $1 AND key = $2`, namespace, key)
	if err != nil {
		return errors.Wrapf(err, "failed to delete state %s", key)
	}
	return nil
}

type stateRow struct {
	Key   string `db:"key"`
	Value []byte `db:"value"`
}

func (p *PostgresDB) GetStateByRange(ctx context.Context, namespace, startKey, endKey string) ([]KV, error) {
	query := `SELECT key, value FROM world_state
		WHERE namespace = $1
		AND ($2 = '' OR key >= $2)
		AND ($3 = '' OR key < $3)
		ORDER BY key`

	var rows []stateRow
	if err := p.DB.SelectContext(ctx, &rows, query, namespace, startKey, endKey); err != nil {
		return nil, errors.Wrap(err, "range query failed")
	}

	result := make([]KV, 0, len(rows))
	for _, row := range rows {
		result = append(result, KV{Key: row.Key, Value: row.Value})
	}
	return result, nil
}

type deletionRow struct {
	ID         uuid.UUID `db:"id"`
	Namespace  string    `db:"namespace"`
	DocumentNo string    `db:"document_no"`
	Asset      []byte    `db:"asset"`
	DeletedBy  string    `db:"deleted_by"`
	DeletedAt  time.Time `db:"deleted_at"`
}

func (p *PostgresDB) RecordDeletion(ctx context.Context, rec *models.DeletedAsset) error {
	var asset []byte
	if rec.Asset != nil {
		var err error
		if asset, err = json.Marshal(rec.Asset); err != nil {
			return errors.Wrap(err, "failed to encode deleted asset")
		}
	}

	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO deleted_assets (id, namespace, document_no, asset, deleted_by, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.Namespace, rec.DocumentNo, asset, rec.DeletedBy, rec.DeletedAt)
	if err != nil {
		return errors.Wrap(err, "failed to record deletion")
	}
	return nil
}

func (p *PostgresDB) GetDeletions(ctx context.Context, namespace string) ([]*models.DeletedAsset, error) {
	var rows []deletionRow
	query := `SELECT id, namespace, document_no, asset, deleted_by, deleted_at
		FROM deleted_assets WHERE namespace = $1 ORDER BY deleted_at DESC`
	if err := p.DB.SelectContext(ctx, &rows, query, namespace); err != nil {
		return nil, errors.Wrap(err, "failed to get deletions")
	}

	result := make([]*models.DeletedAsset, 0, len(rows))
	for _, row := range rows {
		rec := &models.DeletedAsset{
			ID:         row.ID,
			Namespace:  row.Namespace,
			DocumentNo: row.DocumentNo,
			DeletedBy:  row.DeletedBy,
			DeletedAt:  row.DeletedAt,
		}
		if len(row.Asset) > 0 {
			rec.Asset = &models.Asset{}
			if err := json.Unmarshal(row.Asset, rec.Asset); err != nil {
				return nil, errors.Wrapf(err, "invalid asset in deletion %s", row.ID)
			}
		}
		result = append(result, rec)
	}
	return result, nil
}

// SaveUser inserts a user; a taken username is a DUPLICATE error.
func (p *PostgresDB) SaveUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, username, organization, password_hash, created_at)
		VALUES (:id, :username, :organization, :password_hash, :created_at)`
	_, err := p.DB.NamedExecContext(ctx, query, user)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return utils.NewAppError(utils.ErrDuplicate, "Username already registered", err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to save user", err)
	}
	return nil
}

// GetUser fetches a user by their ID.
func (p *PostgresDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, username, organization, password_hash, created_at FROM users WHERE id = $1`
	var user models.User
	err := p.DB.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewUserNotFoundError(id.String())
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user", err)
	}
	return &user, nil
}

// GetUserByUsername fetches a user by their username.
func (p *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, organization, password_hash, created_at FROM users WHERE username = $1`
	var user models.User
	err := p.DB.GetContext(ctx, &user, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewUserNotFoundError(username)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by username", err)
	}
	return &user, nil
}
