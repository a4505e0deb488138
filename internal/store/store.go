package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stripe-sync-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetCreatorByID retrieves a creator by ID
func (s *Store) GetCreatorByID(ctx context.Context, id string) (*models.Creator, error) {
	var creator models.Creator
	err := s.db.GetContext(ctx, &creator, "SELECT * FROM creators WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("creator not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &creator, nil
}

// GetCredential retrieves the token pair for a (creator, environment).
// Returns nil when no credential is stored.
func (s *Store) GetCredential(ctx context.Context, creatorID string, env models.Environment) (*models.OAuthCredential, error) {
	var cred models.OAuthCredential
	err := s.db.GetContext(ctx, &cred,
		"SELECT * FROM oauth_credentials WHERE creator_id = $1 AND environment = $2",
		creatorID, env)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// UpsertCredential stores a token pair, replacing any existing row for the
// same (creator, environment). The unique constraint keeps at most one pair.
func (s *Store) UpsertCredential(ctx context.Context, cred *models.OAuthCredential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_credentials (creator_id, environment, access_token, refresh_token, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (creator_id, environment)
		DO UPDATE SET access_token = $3, refresh_token = $4, updated_at = NOW()`,
		cred.CreatorID, cred.Environment, cred.AccessToken, cred.RefreshToken)
	return err
}
