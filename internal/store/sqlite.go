package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	source_key TEXT NOT NULL,
	state      TEXT NOT NULL,
	row_count  INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
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

CREATE INDEX IF NOT EXISTS idx_companies_dataset ON companies(dataset_id);
CREATE INDEX IF NOT EXISTS idx_companies_resolved_county ON companies(dataset_id, resolved_county);
CREATE INDEX IF NOT EXISTS idx_datasets_name ON datasets(name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateDataset(ctx context.Context, name, sourceKey, state string) (*Dataset, error) {
	ds := &Dataset{
		ID:        uuid.NewString(),
		Name:      name,
		SourceKey: sourceKey,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, name, source_key, state, row_count, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		ds.ID, ds.Name, ds.SourceKey, ds.State, ds.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert dataset")
	}
	return ds, nil
}

func (s *SQLiteStore) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, source_key, state, row_count, created_at FROM datasets WHERE id = ?`, id)

	var ds Dataset
	err := row.Scan(&ds.ID, &ds.Name, &ds.SourceKey, &ds.State, &ds.RowCount, &ds.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(resilience.NewNotFound("dataset", id), "sqlite: get dataset")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get dataset")
	}
	return &ds, nil
}

func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source_key, state, row_count, created_at FROM datasets ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		var ds Dataset
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.SourceKey, &ds.State, &ds.RowCount, &ds.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		out = append(out, ds)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list datasets")
}

func (s *SQLiteStore) DeleteDataset(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM companies WHERE dataset_id = ?`, id); err != nil {
		return eris.Wrap(err, "sqlite: delete dataset companies")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return eris.Wrap(err, "sqlite: delete dataset")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: delete dataset rows affected")
	}
	if n == 0 {
		return eris.Wrap(resilience.NewNotFound("dataset", id), "sqlite: delete dataset")
	}
	return nil
}

func (s *SQLiteStore) ImportCompanies(ctx context.Context, datasetID string, rows []model.ResolvedRecord) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO companies
		(dataset_id, company_number, business_name, sic, postcode, county,
		 address_line_1, address_line_2, town, resolved_county)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer stmt.Close()

	var inserted int64
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			datasetID, r.CompanyNumber, r.BusinessName, r.SIC, r.Postcode, r.County,
			r.AddressLine1, r.AddressLine2, r.Town, r.ResolvedCounty,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert company %s", r.CompanyNumber)
		}
		inserted++
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE datasets SET row_count = (SELECT COUNT(*) FROM companies WHERE dataset_id = ?) WHERE id = ?`,
		datasetID, datasetID,
	); err != nil {
		return 0, eris.Wrap(err, "sqlite: update row count")
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return inserted, nil
}

func (s *SQLiteStore) SearchCompanies(ctx context.Context, datasetID string, filter SearchFilter) ([]model.ResolvedRecord, error) {
	query := `SELECT company_number, business_name, sic, postcode, county,
		address_line_1, address_line_2, town, resolved_county
		FROM companies WHERE dataset_id = ?`
	args := []any{datasetID}

	if filter.Query != "" {
		pattern := "%" + strings.TrimSpace(filter.Query) + "%"
		query += ` AND (business_name LIKE ? OR company_number LIKE ? OR postcode LIKE ?)`
		args = append(args, pattern, pattern, pattern)
	}
	if filter.County != "" {
		query += ` AND resolved_county = ?`
		args = append(args, filter.County)
	}

	query += ` ORDER BY business_name`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search companies")
	}
	defer rows.Close()

	var out []model.ResolvedRecord
	for rows.Next() {
		var r model.ResolvedRecord
		if err := rows.Scan(&r.CompanyNumber, &r.BusinessName, &r.SIC, &r.Postcode, &r.County,
			&r.AddressLine1, &r.AddressLine2, &r.Town, &r.ResolvedCounty); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: search companies")
}
