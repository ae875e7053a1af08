package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/safescan/recall-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	id               TEXT PRIMARY KEY,
	brand            TEXT NOT NULL,
	lot_number       TEXT NOT NULL,
	country          TEXT NOT NULL DEFAULT '',
	recall_status    TEXT NOT NULL DEFAULT 'unknown',
	recall_reference TEXT,
	scanned_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS recalls (
	id           TEXT PRIMARY KEY,
	country      TEXT NOT NULL,
	brand        TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	lot_numbers  TEXT NOT NULL,
	published_at DATETIME
);

CREATE TABLE IF NOT EXISTS lot_patterns (
	id          TEXT PRIMARY KEY,
	brand       TEXT NOT NULL,
	template    TEXT NOT NULL,
	regex       TEXT NOT NULL,
	example_lot TEXT NOT NULL,
	count       INTEGER NOT NULL DEFAULT 0,
	last_seen   DATETIME NOT NULL,
	UNIQUE (brand, template)
);

CREATE TABLE IF NOT EXISTS user_brands (
	name         TEXT PRIMARY KEY,
	added_at     DATETIME NOT NULL,
	last_used_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_status ON products(recall_status);
CREATE INDEX IF NOT EXISTS idx_products_country ON products(country);
CREATE INDEX IF NOT EXISTS idx_recalls_country ON recalls(country);
CREATE INDEX IF NOT EXISTS idx_lot_patterns_brand ON lot_patterns(brand);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Products ---

func (s *SQLiteStore) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.RecallStatus == "" {
		p.RecallStatus = model.RecallStatusUnknown
	}
	now := time.Now().UTC()
	if p.ScannedAt.IsZero() {
		p.ScannedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, brand, lot_number, country, recall_status, recall_reference, scanned_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Brand, p.LotNumber, p.Country, string(p.RecallStatus), p.RecallReference, p.ScannedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert product")
	}
	return &p, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, brand, lot_number, country, recall_status, recall_reference, scanned_at, updated_at
		 FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

func (s *SQLiteStore) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	query := `SELECT id, brand, lot_number, country, recall_status, recall_reference, scanned_at, updated_at
		FROM products WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND recall_status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Country != "" {
		query += ` AND country = ?`
		args = append(args, filter.Country)
	}
	query += ` ORDER BY scanned_at, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, eris.Wrap(rows.Err(), "sqlite: list products iterate")
}

func (s *SQLiteStore) UpdateProductStatus(ctx context.Context, id string, det model.RecallDetermination) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET recall_status = ?, recall_reference = ?, updated_at = ? WHERE id = ?`,
		string(det.Status), det.RecallReference, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update product status %s", id)
	}
	return checkRowsAffected(res, "product", id)
}

// --- Recall corpus ---

func (s *SQLiteStore) ReplaceRecalls(ctx context.Context, country string, recalls []model.Recall) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin replace recalls")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recalls WHERE country = ?`, country); err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete recalls for %s", country)
	}

	for _, r := range recalls {
		if err := insertRecallTx(ctx, tx, r); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit replace recalls")
	}
	return len(recalls), nil
}

func (s *SQLiteStore) UpsertRecalls(ctx context.Context, recalls []model.Recall) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert recalls")
	}
	defer tx.Rollback()

	for _, r := range recalls {
		if err := insertRecallTx(ctx, tx, r); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert recalls")
	}
	return len(recalls), nil
}

func insertRecallTx(ctx context.Context, tx *sql.Tx, r model.Recall) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	lotsJSON, err := json.Marshal(r.LotNumbers)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lot numbers")
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO recalls (id, country, brand, title, lot_numbers, published_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			country = excluded.country,
			brand = excluded.brand,
			title = excluded.title,
			lot_numbers = excluded.lot_numbers,
			published_at = excluded.published_at`,
		r.ID, r.Country, r.Brand, r.Title, string(lotsJSON), r.PublishedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert recall %s", r.ID)
}

func (s *SQLiteStore) ListRecalls(ctx context.Context, country string) ([]model.Recall, error) {
	query := `SELECT id, country, brand, title, lot_numbers, published_at FROM recalls`
	var args []any
	if country != "" {
		query += ` WHERE country = ?`
		args = append(args, country)
	}
	// Deterministic corpus order: publication, then id. Resolution takes
	// the first relevant recall in this order.
	query += ` ORDER BY published_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recalls")
	}
	defer rows.Close()

	var recalls []model.Recall
	for rows.Next() {
		var r model.Recall
		var lotsJSON string
		var published sql.NullTime
		if err := rows.Scan(&r.ID, &r.Country, &r.Brand, &r.Title, &lotsJSON, &published); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recall")
		}
		if err := json.Unmarshal([]byte(lotsJSON), &r.LotNumbers); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lot numbers")
		}
		if published.Valid {
			r.PublishedAt = published.Time
		}
		recalls = append(recalls, r)
	}
	return recalls, eris.Wrap(rows.Err(), "sqlite: list recalls iterate")
}

// --- Lot patterns ---

func (s *SQLiteStore) UpsertLotPattern(ctx context.Context, brand, template, regex, exampleLot string) (*model.LotPattern, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO lot_patterns (id, brand, template, regex, example_lot, count, last_seen)
		 VALUES (?, ?, ?, ?, ?, 1, ?)
		 ON CONFLICT(brand, template) DO UPDATE SET
			count = count + 1,
			example_lot = excluded.example_lot,
			last_seen = excluded.last_seen
		 RETURNING id, brand, template, regex, example_lot, count, last_seen`,
		uuid.New().String(), brand, template, regex, exampleLot, time.Now().UTC(),
	)

	var p model.LotPattern
	if err := row.Scan(&p.ID, &p.Brand, &p.Template, &p.Regex, &p.ExampleLot, &p.Count, &p.LastSeen); err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert lot pattern %s/%s", brand, template)
	}
	return &p, nil
}

func (s *SQLiteStore) ListLotPatterns(ctx context.Context, brand string) ([]model.LotPattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, brand, template, regex, example_lot, count, last_seen
		 FROM lot_patterns WHERE brand = ?
		 ORDER BY count DESC, template`, brand)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list lot patterns")
	}
	defer rows.Close()

	var patterns []model.LotPattern
	for rows.Next() {
		var p model.LotPattern
		if err := rows.Scan(&p.ID, &p.Brand, &p.Template, &p.Regex, &p.ExampleLot, &p.Count, &p.LastSeen); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lot pattern")
		}
		patterns = append(patterns, p)
	}
	return patterns, eris.Wrap(rows.Err(), "sqlite: list lot patterns iterate")
}

// --- User brands ---

func (s *SQLiteStore) AddUserBrand(ctx context.Context, name string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_brands (name, added_at, last_used_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET last_used_at = excluded.last_used_at`,
		name, now, now,
	)
	return eris.Wrapf(err, "sqlite: add user brand %s", name)
}

func (s *SQLiteStore) TouchUserBrand(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_brands SET last_used_at = ? WHERE name = ?`,
		time.Now().UTC(), name,
	)
	return eris.Wrapf(err, "sqlite: touch user brand %s", name)
}

func (s *SQLiteStore) ListUserBrands(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM user_brands ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list user brands")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan user brand")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: list user brands iterate")
}

func (s *SQLiteStore) PruneUserBrands(ctx context.Context, unusedFor time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM user_brands WHERE last_used_at <= ?`,
		time.Now().UTC().Add(-unusedFor),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune user brands")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProduct(row scannable) (*model.Product, error) {
	var p model.Product
	var status string
	var ref sql.NullString

	err := row.Scan(&p.ID, &p.Brand, &p.LotNumber, &p.Country, &status, &ref, &p.ScannedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("product not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan product")
	}
	p.RecallStatus = model.RecallStatus(status)
	if ref.Valid {
		p.RecallReference = ref.String
	}
	return &p, nil
}
