package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock, table: DefaultTable}, mock
}

func recordRow(rec model.CompanyRecord) []any {
	vals := rec.Values()
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "company_records"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompany_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	rec := sampleRecord("acme")

	mock.ExpectQuery(`SELECT .* FROM "company_records" WHERE "company_name" = \$1`).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows(Columns()).AddRow(recordRow(rec)...))

	got, err := s.GetCompany(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompany_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM "company_records"`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetCompany(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompany_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM "company_records"`).
		WithArgs("acme").
		WillReturnError(errors.New("connection lost"))

	_, err := s.GetCompany(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get company")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// insertArgsFor matches the bind args of an insert: a generated id then the record values.
func insertArgsFor(rec model.CompanyRecord) []any {
	return append([]any{pgxmock.AnyArg()}, recordRow(rec)...)
}

func TestPostgresStore_InsertCompany(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	rec := sampleRecord("acme")

	mock.ExpectExec(`INSERT INTO "company_records" .* ON CONFLICT \("company_name"\) DO NOTHING`).
		WithArgs(insertArgsFor(rec)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.InsertCompany(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertCompany_Conflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	rec := sampleRecord("acme")

	mock.ExpectExec(`INSERT INTO "company_records"`).
		WithArgs(insertArgsFor(rec)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := s.InsertCompany(context.Background(), rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertCompany_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rec := sampleRecord("acme")
	mock.ExpectExec(`INSERT INTO "company_records"`).
		WithArgs(insertArgsFor(rec)...).
		WillReturnError(errors.New("disk full"))

	err := s.InsertCompany(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert company")
}

func TestPostgresStore_UpdateFinancialInfo(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE "company_records" SET financial_info = \$1`).
		WithArgs("Revenue: $1.00M/yr", "acme").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateFinancialInfo(context.Background(), "acme", "Revenue: $1.00M/yr"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateFinancialInfo_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE "company_records"`).
		WithArgs("x", "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateFinancialInfo(context.Background(), "ghost", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrNotFound))
}

func TestPostgresStore_ListCompanies(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	a, b := sampleRecord("a"), sampleRecord("b")

	mock.ExpectQuery(`SELECT .* FROM "company_records" ORDER BY`).
		WillReturnRows(pgxmock.NewRows(Columns()).
			AddRow(recordRow(a)...).
			AddRow(recordRow(b)...))

	all, err := s.ListCompanies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.CompanyRecord{a, b}, all)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	var closed bool
	s := &PostgresStore{closeFn: func() { closed = true }}
	assert.NoError(t, s.Close())
	assert.True(t, closed)
}
