package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS purchases (
	id           BIGSERIAL PRIMARY KEY,
	article_id   TEXT NOT NULL,
	user_address TEXT NOT NULL,
	tx_hash      TEXT NOT NULL,
	amount       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (user_address, article_id, tx_hash)
);
CREATE INDEX IF NOT EXISTS idx_purchases_user ON purchases (user_address);

CREATE TABLE IF NOT EXISTS claps (
	article_id   TEXT NOT NULL,
	user_address TEXT NOT NULL,
	count        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (article_id, user_address)
);
`

// PostgresStore persists to postgres through a pgx pool, for deployments
// where the gate runs more than one instance.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings, and applies the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) InsertPurchase(ctx context.Context, p Purchase) (bool, error) {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO purchases (article_id, user_address, tx_hash, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_address, article_id, tx_hash) DO NOTHING`,
		p.ArticleID, p.UserAddress, p.TxHash, p.Amount, ts)
	if err != nil {
		return false, fmt.Errorf("insert purchase: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) HasPurchase(ctx context.Context, userAddress, articleID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM purchases WHERE user_address = $1 AND article_id = $2)`,
		userAddress, articleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query purchase: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) PurchasesFor(ctx context.Context, userAddress string) ([]Purchase, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT article_id, user_address, tx_hash, amount, created_at
		 FROM purchases WHERE user_address = $1 ORDER BY id`,
		userAddress)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var out []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ArticleID, &p.UserAddress, &p.TxHash, &p.Amount, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) IncrementClap(ctx context.Context, articleID, userAddress string, limit int) (int, int, error) {
	var userCount int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO claps (article_id, user_address, count) VALUES ($1, $2, 1)
		 ON CONFLICT (article_id, user_address)
		 DO UPDATE SET count = claps.count + 1 WHERE claps.count < $3
		 RETURNING count`,
		articleID, userAddress, limit).Scan(&userCount)
	if errors.Is(err, pgx.ErrNoRows) {
		// Cap reached; the row was left untouched.
		userCount, err = s.UserClaps(ctx, articleID, userAddress)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("increment clap: %w", err)
	}

	total, err := s.ClapTotal(ctx, articleID)
	if err != nil {
		return 0, 0, err
	}
	return userCount, total, nil
}

func (s *PostgresStore) ClapTotal(ctx context.Context, articleID string) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(count), 0) FROM claps WHERE article_id = $1`, articleID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query clap total: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) UserClaps(ctx context.Context, articleID, userAddress string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count FROM claps WHERE article_id = $1 AND user_address = $2`,
		articleID, userAddress).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query user claps: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
