package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

// Pool is the slice of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	source_key TEXT NOT NULL,
	state      TEXT NOT NULL,
	row_count  INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	dataset_id      TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	company_number  TEXT NOT NULL,
	business_name   TEXT NOT NULL,
	sic             TEXT,
	postcode        TEXT,
	county          TEXT,
	address_line_1  TEXT,
	address_line_2  TEXT,
	town            TEXT,
	resolved_county TEXT,
	PRIMARY KEY (dataset_id, company_number)
);

CREATE INDEX IF NOT EXISTS idx_companies_resolved_county ON companies(dataset_id, resolved_county);
CREATE INDEX IF NOT EXISTS idx_datasets_name ON datasets(name);
`

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

func (s *PostgresStore) CreateDataset(ctx context.Context, name, sourceKey, state string) (*Dataset, error) {
	ds := &Dataset{
		ID:        uuid.NewString(),
		Name:      name,
		SourceKey: sourceKey,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO datasets (id, name, source_key, state, row_count, created_at) VALUES ($1, $2, $3, $4, 0, $5)`,
		ds.ID, ds.Name, ds.SourceKey, ds.State, ds.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert dataset")
	}
	return ds, nil
}

func (s *PostgresStore) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	var ds Dataset
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, source_key, state, row_count, created_at FROM datasets WHERE id = $1`, id,
	).Scan(&ds.ID, &ds.Name, &ds.SourceKey, &ds.State, &ds.RowCount, &ds.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(resilience.NewNotFound("dataset", id), "postgres: get dataset")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get dataset")
	}
	return &ds, nil
}

func (s *PostgresStore) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, source_key, state, row_count, created_at FROM datasets ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		var ds Dataset
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.SourceKey, &ds.State, &ds.RowCount, &ds.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset")
		}
		out = append(out, ds)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list datasets")
}

func (s *PostgresStore) DeleteDataset(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return eris.Wrap(err, "postgres: delete dataset")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrap(resilience.NewNotFound("dataset", id), "postgres: delete dataset")
	}
	return nil
}

// ImportCompanies bulk-loads rows with the COPY protocol, then refreshes the
// dataset row count.
func (s *PostgresStore) ImportCompanies(ctx context.Context, datasetID string, rows []model.ResolvedRecord) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	src := make([][]any, len(rows))
	for i, r := range rows {
		src[i] = []any{
			datasetID, r.CompanyNumber, r.BusinessName, r.SIC, r.Postcode, r.County,
			r.AddressLine1, r.AddressLine2, r.Town, r.ResolvedCounty,
		}
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"companies"},
		[]string{"dataset_id", "company_number", "business_name", "sic", "postcode", "county",
			"address_line_1", "address_line_2", "town", "resolved_county"},
		pgx.CopyFromRows(src),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy companies")
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE datasets SET row_count = (SELECT COUNT(*) FROM companies WHERE dataset_id = $1) WHERE id = $1`,
		datasetID,
	); err != nil {
		return 0, eris.Wrap(err, "postgres: update row count")
	}
	return n, nil
}

func (s *PostgresStore) SearchCompanies(ctx context.Context, datasetID string, filter SearchFilter) ([]model.ResolvedRecord, error) {
	query := `SELECT company_number, business_name, sic, postcode, county,
		address_line_1, address_line_2, town, resolved_county
		FROM companies WHERE dataset_id = $1`
	args := []any{datasetID}

	if filter.Query != "" {
		pattern := "%" + strings.TrimSpace(filter.Query) + "%"
		args = append(args, pattern)
		n := len(args)
		query += ` AND (business_name ILIKE $` + strconv.Itoa(n) +
			` OR company_number ILIKE $` + strconv.Itoa(n) +
			` OR postcode ILIKE $` + strconv.Itoa(n) + `)`
	}
	if filter.County != "" {
		args = append(args, filter.County)
		query += ` AND resolved_county = $` + strconv.Itoa(len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` ORDER BY business_name LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search companies")
	}
	defer rows.Close()

	var out []model.ResolvedRecord
	for rows.Next() {
		var r model.ResolvedRecord
		if err := rows.Scan(&r.CompanyNumber, &r.BusinessName, &r.SIC, &r.Postcode, &r.County,
			&r.AddressLine1, &r.AddressLine2, &r.Town, &r.ResolvedCounty); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: search companies")
}

