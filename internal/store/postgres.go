package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/safescan/recall-cli/internal/db"
	"github.com/safescan/recall-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_product":        `INSERT INTO products (id, brand, lot_number, country, recall_status, recall_reference, scanned_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_product":           `SELECT id, brand, lot_number, country, recall_status, recall_reference, scanned_at, updated_at FROM products WHERE id = $1`,
	"update_product_status": `UPDATE products SET recall_status = $1, recall_reference = $2, updated_at = $3 WHERE id = $4`,
	"upsert_lot_pattern": `INSERT INTO lot_patterns (id, brand, template, regex, example_lot, count, last_seen)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (brand, template) DO UPDATE SET
			count = lot_patterns.count + 1,
			example_lot = EXCLUDED.example_lot,
			last_seen = EXCLUDED.last_seen
		RETURNING id, brand, template, regex, example_lot, count, last_seen`,
	"list_lot_patterns": `SELECT id, brand, template, regex, example_lot, count, last_seen FROM lot_patterns WHERE brand = $1 ORDER BY count DESC, template`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for use by subsystems
// that need direct query access (e.g., bulk corpus imports).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	brand            TEXT NOT NULL,
	lot_number       TEXT NOT NULL,
	country          TEXT NOT NULL DEFAULT '',
	recall_status    TEXT NOT NULL DEFAULT 'unknown',
	recall_reference TEXT,
	scanned_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS recalls (
	id           TEXT PRIMARY KEY,
	country      TEXT NOT NULL,
	brand        TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	lot_numbers  JSONB NOT NULL DEFAULT '[]'::jsonb,
	published_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS lot_patterns (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	brand       TEXT NOT NULL,
	template    TEXT NOT NULL,
	regex       TEXT NOT NULL,
	example_lot TEXT NOT NULL,
	count       BIGINT NOT NULL DEFAULT 0,
	last_seen   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (brand, template)
);

CREATE TABLE IF NOT EXISTS user_brands (
	name         TEXT PRIMARY KEY,
	added_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_used_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_products_status ON products(recall_status);
CREATE INDEX IF NOT EXISTS idx_products_country ON products(country);
CREATE INDEX IF NOT EXISTS idx_recalls_country ON recalls(country);
CREATE INDEX IF NOT EXISTS idx_lot_patterns_brand ON lot_patterns(brand);
CREATE INDEX IF NOT EXISTS idx_user_brands_last_used ON user_brands(last_used_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO products (id, brand, lot_number, country, recall_status, recall_reference, scanned_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Brand, p.LotNumber, p.Country, string(p.RecallStatus), nullIfEmpty(p.RecallReference), p.ScannedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert product")
	}
	return &p, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	var status string
	var ref *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, brand, lot_number, country, recall_status, recall_reference, scanned_at, updated_at FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Brand, &p.LotNumber, &p.Country, &status, &ref, &p.ScannedAt, &p.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get product %s", id)
	}
	p.RecallStatus = model.RecallStatus(status)
	if ref != nil {
		p.RecallReference = *ref
	}
	return &p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	query := `SELECT id, brand, lot_number, country, recall_status, recall_reference, scanned_at, updated_at FROM products WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND recall_status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Country != "" {
		query += fmt.Sprintf(` AND country = $%d`, argIdx)
		args = append(args, filter.Country)
		argIdx++
	}
	query += ` ORDER BY scanned_at, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		var status string
		var ref *string

		if err := rows.Scan(&p.ID, &p.Brand, &p.LotNumber, &p.Country, &status, &ref, &p.ScannedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		p.RecallStatus = model.RecallStatus(status)
		if ref != nil {
			p.RecallReference = *ref
		}
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "postgres: list products iterate")
}

func (s *PostgresStore) UpdateProductStatus(ctx context.Context, id string, det model.RecallDetermination) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET recall_status = $1, recall_reference = $2, updated_at = $3 WHERE id = $4`,
		string(det.Status), nullIfEmpty(det.RecallReference), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update product status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("product not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ReplaceRecalls(ctx context.Context, country string, recalls []model.Recall) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin replace recalls")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM recalls WHERE country = $1`, country); err != nil {
		return 0, eris.Wrapf(err, "postgres: delete recalls for %s", country)
	}

	rows := make([][]any, 0, len(recalls))
	for _, r := range recalls {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		lotsJSON, err := json.Marshal(r.LotNumbers)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal lot numbers")
		}
		rows = append(rows, []any{r.ID, r.Country, r.Brand, r.Title, lotsJSON, nullTime(r.PublishedAt)})
	}

	n, err := db.CopyFrom(ctx, tx, "recalls",
		[]string{"id", "country", "brand", "title", "lot_numbers", "published_at"}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy recalls")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit replace recalls")
	}
	return int(n), nil
}

func (s *PostgresStore) UpsertRecalls(ctx context.Context, recalls []model.Recall) (int, error) {
	rows := make([][]any, 0, len(recalls))
	for _, r := range recalls {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		lotsJSON, err := json.Marshal(r.LotNumbers)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal lot numbers")
		}
		rows = append(rows, []any{r.ID, r.Country, r.Brand, r.Title, lotsJSON, nullTime(r.PublishedAt)})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "recalls",
		Columns:      []string{"id", "country", "brand", "title", "lot_numbers", "published_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"country", "brand", "title", "lot_numbers", "published_at"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert recalls")
	}
	return int(n), nil
}

func (s *PostgresStore) ListRecalls(ctx context.Context, country string) ([]model.Recall, error) {
	query := `SELECT id, country, brand, title, lot_numbers, published_at FROM recalls`
	args := []any{}
	if country != "" {
		query += ` WHERE country = $1`
		args = append(args, country)
	}
	query += ` ORDER BY published_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recalls")
	}
	defer rows.Close()

	var recalls []model.Recall
	for rows.Next() {
		var r model.Recall
		var lotsJSON []byte
		var published *time.Time

		if err := rows.Scan(&r.ID, &r.Country, &r.Brand, &r.Title, &lotsJSON, &published); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recall")
		}
		if err := json.Unmarshal(lotsJSON, &r.LotNumbers); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lot numbers")
		}
		if published != nil {
			r.PublishedAt = *published
		}
		recalls = append(recalls, r)
	}
	return recalls, eris.Wrap(rows.Err(), "postgres: list recalls iterate")
}

func (s *PostgresStore) UpsertLotPattern(ctx context.Context, brand, template, regex, exampleLot string) (*model.LotPattern, error) {
	var p model.LotPattern
	err := s.pool.QueryRow(ctx,
		`INSERT INTO lot_patterns (id, brand, template, regex, example_lot, count, last_seen)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (brand, template) DO UPDATE SET
			count = lot_patterns.count + 1,
			example_lot = EXCLUDED.example_lot,
			last_seen = EXCLUDED.last_seen
		RETURNING id, brand, template, regex, example_lot, count, last_seen`,
		uuid.New().String(), brand, template, regex, exampleLot, time.Now().UTC(),
	).Scan(&p.ID, &p.Brand, &p.Template, &p.Regex, &p.ExampleLot, &p.Count, &p.LastSeen)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert lot pattern %s/%s", brand, template)
	}
	return &p, nil
}

func (s *PostgresStore) ListLotPatterns(ctx context.Context, brand string) ([]model.LotPattern, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, brand, template, regex, example_lot, count, last_seen FROM lot_patterns WHERE brand = $1 ORDER BY count DESC, template`,
		brand,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list lot patterns")
	}
	defer rows.Close()

	var patterns []model.LotPattern
	for rows.Next() {
		var p model.LotPattern
		if err := rows.Scan(&p.ID, &p.Brand, &p.Template, &p.Regex, &p.ExampleLot, &p.Count, &p.LastSeen); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lot pattern")
		}
		patterns = append(patterns, p)
	}
	return patterns, eris.Wrap(rows.Err(), "postgres: list lot patterns iterate")
}

func (s *PostgresStore) AddUserBrand(ctx context.Context, name string) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_brands (name, added_at, last_used_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET last_used_at = EXCLUDED.last_used_at`,
		name, now, now,
	)
	return eris.Wrapf(err, "postgres: add user brand %s", name)
}

func (s *PostgresStore) TouchUserBrand(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_brands SET last_used_at = $1 WHERE name = $2`,
		time.Now().UTC(), name,
	)
	return eris.Wrapf(err, "postgres: touch user brand %s", name)
}

func (s *PostgresStore) ListUserBrands(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM user_brands ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list user brands")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan user brand")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "postgres: list user brands iterate")
}

func (s *PostgresStore) PruneUserBrands(ctx context.Context, unusedFor time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_brands WHERE last_used_at <= $1`,
		time.Now().UTC().Add(-unusedFor),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune user brands")
	}
	return int(tag.RowsAffected()), nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
