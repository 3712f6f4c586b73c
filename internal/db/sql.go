package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Placeholder renders the i-th (1-based) bind parameter for a SQL dialect.
type Placeholder func(i int) string

// DollarPlaceholder renders Postgres-style $1, $2, ... parameters.
func DollarPlaceholder(i int) string { return fmt.Sprintf("$%d", i) }

// QuestionPlaceholder renders SQLite-style ? parameters.
func QuestionPlaceholder(int) string { return "?" }

// InsertConfig defines a single-row insert that skips conflicting rows.
// Callers detect the skip through rows affected.
type InsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // inserted columns in bind order
	ConflictKeys []string // columns forming the unique constraint
}

// BuildInsert returns INSERT ... VALUES (...) ON CONFLICT (keys) DO NOTHING.
func BuildInsert(cfg InsertConfig, ph Placeholder) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: insert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: insert: no conflict keys specified")
	}

	params := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		params[i] = ph(i + 1)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		SanitizeTable(cfg.Table),
		QuoteAndJoin(cfg.Columns),
		strings.Join(params, ", "),
		QuoteAndJoin(cfg.ConflictKeys),
	), nil
}

// BuildSelect returns SELECT cols FROM table with an optional WHERE clause.
func BuildSelect(table string, columns []string, where string) string {
	q := fmt.Sprintf("SELECT %s FROM %s", QuoteAndJoin(columns), SanitizeTable(table))
	if where != "" {
		q += " WHERE " + where
	}
	return q
}

// SanitizeTable quotes a table name, handling schema-qualified names like "public.companies".
func SanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// QuoteAndJoin quotes each column name and joins with commas.
func QuoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
