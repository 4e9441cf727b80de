package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS purchases (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id   TEXT NOT NULL,
	user_address TEXT NOT NULL,
	tx_hash      TEXT NOT NULL,
	amount       TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL,
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

// SQLiteStore persists to an embedded sqlite database file. The cgo-free
// modernc driver keeps the binary self-contained.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Serialized writes; the capped clap update depends on it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) InsertPurchase(ctx context.Context, p Purchase) (bool, error) {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO purchases (article_id, user_address, tx_hash, amount, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ArticleID, p.UserAddress, p.TxHash, p.Amount, ts)
	if err != nil {
		return false, fmt.Errorf("insert purchase: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) HasPurchase(ctx context.Context, userAddress, articleID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM purchases WHERE user_address = ? AND article_id = ?)`,
		userAddress, articleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query purchase: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) PurchasesFor(ctx context.Context, userAddress string) ([]Purchase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT article_id, user_address, tx_hash, amount, created_at
		 FROM purchases WHERE user_address = ? ORDER BY id`,
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

func (s *SQLiteStore) IncrementClap(ctx context.Context, articleID, userAddress string, limit int) (int, int, error) {
	// The guarded upsert leaves a capped count untouched, so calls past
	// the limit are no-ops rather than errors.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO claps (article_id, user_address, count) VALUES (?, ?, 1)
		 ON CONFLICT (article_id, user_address)
		 DO UPDATE SET count = count + 1 WHERE count < ?`,
		articleID, userAddress, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("increment clap: %w", err)
	}

	userCount, err := s.UserClaps(ctx, articleID, userAddress)
	if err != nil {
		return 0, 0, err
	}
	total, err := s.ClapTotal(ctx, articleID)
	if err != nil {
		return 0, 0, err
	}
	return userCount, total, nil
}

func (s *SQLiteStore) ClapTotal(ctx context.Context, articleID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(count), 0) FROM claps WHERE article_id = ?`, articleID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query clap total: %w", err)
	}
	return total, nil
}

func (s *SQLiteStore) UserClaps(ctx context.Context, articleID, userAddress string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(count, 0) FROM claps WHERE article_id = ? AND user_address = ?`,
		articleID, userAddress).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query user claps: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
