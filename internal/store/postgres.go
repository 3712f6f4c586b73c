package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/db"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	table   string
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString, table string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
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

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, table: tableOrDefault(table), closeFn: pool.Close}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_name TEXT NOT NULL UNIQUE,
%s	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`, db.SanitizeTable(s.table), columnDDL())
	_, err := s.pool.Exec(ctx, ddl)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, name string) (*model.CompanyRecord, error) {
	q := db.BuildSelect(s.table, columns, `"company_name" = $1`)
	rec, err := scanCompany(s.pool.QueryRow(ctx, q, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %q", name)
	}
	return rec, nil
}

func (s *PostgresStore) InsertCompany(ctx context.Context, rec model.CompanyRecord) error {
	q, err := db.BuildInsert(db.InsertConfig{
		Table:        s.table,
		Columns:      append([]string{"id"}, columns...),
		ConflictKeys: []string{"company_name"},
	}, db.DollarPlaceholder)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, q, insertArgs(uuid.New().String(), rec)...)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert company %q", rec.Name)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(resilience.ErrExists, "postgres: insert company %q", rec.Name)
	}
	return nil
}

func (s *PostgresStore) UpdateFinancialInfo(ctx context.Context, name, info string) error {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET financial_info = $1, updated_at = now() WHERE company_name = $2`, db.SanitizeTable(s.table)),
		info, name,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update financial info %q", name)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(resilience.ErrNotFound, "company %q", name)
	}
	return nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.CompanyRecord, error) {
	q := db.BuildSelect(s.table, columns, "") + " ORDER BY created_at, company_name"
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var out []model.CompanyRecord
	for rows.Next() {
		rec, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate companies")
}
