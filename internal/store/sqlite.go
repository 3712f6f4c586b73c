package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/enrich-cli/internal/db"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn, table string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; a single connection serializes writers.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn, table: tableOrDefault(table)}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	t := db.SanitizeTable(s.table)
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id           TEXT PRIMARY KEY,
	company_name TEXT NOT NULL UNIQUE,
%s	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);
`, t, columnDDL())
	_, err := s.db.ExecContext(ctx, ddl)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCompany(ctx context.Context, name string) (*model.CompanyRecord, error) {
	q := db.BuildSelect(s.table, columns, `"company_name" = ?`)
	var rec model.CompanyRecord
	err := s.db.QueryRowContext(ctx, q, name).Scan(scanTargets(&rec)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %q", name)
	}
	return &rec, nil
}

func (s *SQLiteStore) InsertCompany(ctx context.Context, rec model.CompanyRecord) error {
	q, err := db.BuildInsert(db.InsertConfig{
		Table:        s.table,
		Columns:      append([]string{"id"}, columns...),
		ConflictKeys: []string{"company_name"},
	}, db.QuestionPlaceholder)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, q, insertArgs(uuid.New().String(), rec)...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert company %q", rec.Name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert company %q", rec.Name)
	}
	if n == 0 {
		return eris.Wrapf(resilience.ErrExists, "sqlite: insert company %q", rec.Name)
	}
	return nil
}

func (s *SQLiteStore) UpdateFinancialInfo(ctx context.Context, name, info string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET financial_info = ?, updated_at = ? WHERE company_name = ?`, db.SanitizeTable(s.table)),
		info, time.Now().UTC(), name,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update financial info %q", name)
	}
	return checkRowsAffected(res, name)
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.CompanyRecord, error) {
	q := db.BuildSelect(s.table, columns, "") + " ORDER BY created_at, rowid"
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CompanyRecord
	for rows.Next() {
		rec, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate companies")
}

func checkRowsAffected(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(resilience.ErrNotFound, "company %q", name)
	}
	return nil
}

func scanCompany(row scannable) (*model.CompanyRecord, error) {
	var rec model.CompanyRecord
	if err := row.Scan(scanTargets(&rec)...); err != nil {
		return nil, err
	}
	return &rec, nil
}
