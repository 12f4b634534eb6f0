package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voice-platform/internal/pricing"
	"voice-platform/pkg/utils"

	"github.com/shopspring/decimal"
)

// PostgresStore persists calls through database/sql (pgx stdlib driver).
//
// Writers to one call are serialized with SELECT ... FOR UPDATE.
// Only lifecycle columns are ever updated.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS calls (
  seq               BIGSERIAL     NOT NULL,
  call_id           TEXT          PRIMARY KEY,
  account_id        TEXT          NOT NULL,
  to_number         TEXT          NOT NULL,
  from_number       TEXT          NOT NULL,
  to_country        TEXT          NULL,
  from_country      TEXT          NULL,
  status            TEXT          NOT NULL,
  direction         TEXT          NOT NULL,
  rate_per_minute   NUMERIC(12,6) NOT NULL,
  rate_tier         TEXT          NOT NULL,
  price_unit        TEXT          NOT NULL,
  start_time        TIMESTAMPTZ   NULL,
  end_time          TIMESTAMPTZ   NULL,
  duration_seconds  INTEGER       NULL,
  price             NUMERIC(14,4) NULL,
  webhook_url       TEXT          NOT NULL DEFAULT '',
  webhook_method    TEXT          NOT NULL,
  timeout_seconds   INTEGER       NOT NULL,
  record            BOOLEAN       NOT NULL DEFAULT FALSE,
  machine_detection BOOLEAN       NOT NULL DEFAULT FALSE,
  created_at        TIMESTAMPTZ   NOT NULL,
  updated_at        TIMESTAMPTZ   NOT NULL
);
CREATE INDEX IF NOT EXISTS calls_account_seq_idx ON calls (account_id, seq);
CREATE INDEX IF NOT EXISTS calls_account_created_idx ON calls (account_id, created_at);
`

// EnsureSchema creates the calls table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

const selectColumns = `
seq, call_id, account_id, to_number, from_number, to_country, from_country,
status, direction, rate_per_minute, rate_tier, price_unit,
start_time, end_time, duration_seconds, price,
webhook_url, webhook_method, timeout_seconds, record, machine_detection,
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var (
		c                      Call
		toCountry, fromCountry sql.NullString
		start, end             sql.NullTime
		duration               sql.NullInt64
		price                  decimal.NullDecimal
		tier                   string
	)
	err := row.Scan(
		&c.Seq,
		&c.CallID,
		&c.AccountID,
		&c.To,
		&c.From,
		&toCountry,
		&fromCountry,
		&c.Status,
		&c.Direction,
		&c.RatePerMinute,
		&tier,
		&c.PriceUnit,
		&start,
		&end,
		&duration,
		&price,
		&c.WebhookURL,
		&c.WebhookMethod,
		&c.TimeoutSeconds,
		&c.Record,
		&c.MachineDetection,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	c.RateTier = pricing.Tier(tier)
	if toCountry.Valid {
		c.ToCountry = &toCountry.String
	}
	if fromCountry.Valid {
		c.FromCountry = &fromCountry.String
	}
	if start.Valid {
		t := start.Time.UTC()
		c.StartTime = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		c.EndTime = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		c.DurationSeconds = &d
	}
	if price.Valid {
		p := price.Decimal
		c.Price = &p
	}
	return c, nil
}

func (s *PostgresStore) Create(ctx context.Context, c Call) (Call, error) {
	const q = `
INSERT INTO calls (
  call_id, account_id, to_number, from_number, to_country, from_country,
  status, direction, rate_per_minute, rate_tier, price_unit,
  start_time, end_time, duration_seconds, price,
  webhook_url, webhook_method, timeout_seconds, record, machine_detection,
  created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22
)
RETURNING seq
`
	err := s.db.QueryRowContext(ctx, q,
		c.CallID,
		c.AccountID,
		c.To,
		c.From,
		nullString(c.ToCountry),
		nullString(c.FromCountry),
		c.Status,
		c.Direction,
		c.RatePerMinute,
		string(c.RateTier),
		c.PriceUnit,
		nullTime(c.StartTime),
		nullTime(c.EndTime),
		nullInt(c.DurationSeconds),
		nullDecimal(c.Price),
		c.WebhookURL,
		c.WebhookMethod,
		c.TimeoutSeconds,
		c.Record,
		c.MachineDetection,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.Seq)
	if err != nil {
		if utils.IsUniqueViolation(err) {
			return Call{}, ErrConflict
		}
		return Call{}, err
	}
	return c, nil
}

func (s *PostgresStore) Get(ctx context.Context, accountID, callID string) (Call, error) {
	q := `SELECT` + selectColumns + `
FROM calls
WHERE account_id = $1 AND call_id = $2
`
	return scanCall(s.db.QueryRowContext(ctx, q, accountID, callID))
}

func (s *PostgresStore) List(ctx context.Context, accountID string, offset, limit int) ([]Call, int, error) {
	if offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative offset", ErrValidation)
	}
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls WHERE account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || offset >= total {
		return []Call{}, total, nil
	}

	q := `SELECT` + selectColumns + `
FROM calls
WHERE account_id = $1
ORDER BY seq
LIMIT $2 OFFSET $3
`
	out, err := s.query(ctx, q, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresStore) ListCreatedBetween(ctx context.Context, accountID string, from, to time.Time) ([]Call, error) {
	q := `SELECT` + selectColumns + `
FROM calls
WHERE account_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY seq
`
	return s.query(ctx, q, accountID, from, to)
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]Call, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, accountID, callID string, fn UpdateFunc) (Call, error) {
	var out Call
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		q := `SELECT` + selectColumns + `
FROM calls
WHERE account_id = $1 AND call_id = $2
FOR UPDATE
`
		current, err := scanCall(tx.QueryRowContext(ctx, q, accountID, callID))
		if err != nil {
			return err
		}

		working := current.Clone()
		changed, err := fn(&working)
		if err != nil {
			return err
		}
		if !changed {
			out = current
			return nil
		}
		keepImmutable(&working, current)
		working.UpdatedAt = s.clock().UTC()

		const upd = `
UPDATE calls
SET status = $3, start_time = $4, end_time = $5, duration_seconds = $6, price = $7, updated_at = $8
WHERE account_id = $1 AND call_id = $2
`
		if _, err := tx.ExecContext(ctx, upd,
			accountID,
			callID,
			working.Status,
			nullTime(working.StartTime),
			nullTime(working.EndTime),
			nullInt(working.DurationSeconds),
			nullDecimal(working.Price),
			working.UpdatedAt,
		); err != nil {
			return err
		}
		out = working
		return nil
	})
	if err != nil {
		return Call{}, err
	}
	return out, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullDecimal(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *p, Valid: true}
}
