package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"signup/internal/signup/models"
	"signup/pkg/platform/sentinel"
)

// PostgresStore persists accounts in a single table keyed by id.
// The table is created by postgres.Migrate.
type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgres(db *sql.DB, table string) *PostgresStore {
	return &PostgresStore{db: db, table: pq.QuoteIdentifier(table)}
}

func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + s.table + ` WHERE id = $1)`
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return exists, nil
}

// Write upserts, overwriting any existing record for key.
func (s *PostgresStore) Write(ctx context.Context, key string, account models.Account) error {
	query := `
		INSERT INTO ` + s.table + ` (id, password, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			password = EXCLUDED.password,
			name = EXCLUDED.name,
			updated_at = now()
	`
	if _, err := s.db.ExecContext(ctx, query, key, account.Password, account.Name); err != nil {
		return fmt.Errorf("write account %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

// CreateIfAbsent inserts only when id is free; a lost race returns ErrConflict.
func (s *PostgresStore) CreateIfAbsent(ctx context.Context, key string, account models.Account) error {
	query := `
		INSERT INTO ` + s.table + ` (id, password, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, key, account.Password, account.Name)
	if err != nil {
		return fmt.Errorf("create account %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create account %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("create %s: %w", key, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, key string) (models.Account, error) {
	var account models.Account
	query := `SELECT id, password, name FROM ` + s.table + ` WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, key).Scan(&account.ID, &account.Password, &account.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("find account %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return account, nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
