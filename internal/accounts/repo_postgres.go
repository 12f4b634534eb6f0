package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voice-platform/pkg/utils"
)

// PostgresRepo stores users and accounts through database/sql (pgx stdlib driver).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS accounts (
  id            TEXT PRIMARY KEY,
  friendly_name TEXT NOT NULL,
  status        TEXT NOT NULL,
  type          TEXT NOT NULL,
  auth_token    TEXT NOT NULL,
  owner_user_id TEXT NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL,
  updated_at    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
  id            TEXT PRIMARY KEY,
  email         TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  account_id    TEXT NOT NULL REFERENCES accounts (id),
  created_at    TIMESTAMPTZ NOT NULL,
  updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON users (lower(email));
`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("accounts: ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepo) CreateUserWithAccount(ctx context.Context, u User, a Account) error {
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const qa = `
INSERT INTO accounts (id, friendly_name, status, type, auth_token, owner_user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
		if _, err := tx.ExecContext(ctx, qa, a.ID, a.FriendlyName, string(a.Status), string(a.Type), a.AuthToken, a.OwnerUserID, a.CreatedAt, a.UpdatedAt); err != nil {
			return err
		}
		const qu = `
INSERT INTO users (id, email, password_hash, account_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
		_, err := tx.ExecContext(ctx, qu, u.ID, u.Email, u.PasswordHash, u.AccountID, u.CreatedAt, u.UpdatedAt)
		return err
	})
	if utils.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

const userColumns = `id, email, password_hash, account_id, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.AccountID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, q, email))
}

func (r *PostgresRepo) UserByID(ctx context.Context, id string) (User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) Account(ctx context.Context, id string) (Account, error) {
	const q = `
SELECT id, friendly_name, status, type, auth_token, owner_user_id, created_at, updated_at
FROM accounts
WHERE id = $1
`
	var (
		a      Account
		status string
		typ    string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.FriendlyName, &status, &typ, &a.AuthToken, &a.OwnerUserID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.Status = Status(status)
	a.Type = Type(typ)
	return a, nil
}

func (r *PostgresRepo) UpdateAccount(ctx context.Context, a Account) error {
	const q = `
UPDATE accounts SET friendly_name = $2, status = $3, updated_at = $4
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, a.ID, a.FriendlyName, string(a.Status), a.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
