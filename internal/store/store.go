// Package store persists enriched company records.
package store

import (
	"context"

	"github.com/sells-group/enrich-cli/internal/model"
)

// DefaultTable is the company table used when none is configured.
const DefaultTable = "company_records"

// Store defines the persistence interface for enriched company records.
type Store interface {
	// GetCompany returns the record with the exact company name, or nil when absent.
	GetCompany(ctx context.Context, name string) (*model.CompanyRecord, error)
	// InsertCompany stores a new record. A row with the same name is left
	// untouched and resilience.ErrExists is returned.
	InsertCompany(ctx context.Context, rec model.CompanyRecord) error
	// UpdateFinancialInfo rewrites only the Financial Info column of an existing row.
	UpdateFinancialInfo(ctx context.Context, name, info string) error
	// ListCompanies returns every stored record in insertion order.
	ListCompanies(ctx context.Context) ([]model.CompanyRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// columns is the persisted column order; it matches model.Columns.
var columns = []string{
	"company_name",
	"website",
	"description",
	"industry",
	"software_classification",
	"enterprise_grade_classification",
	"geography",
	"street_address",
	"city",
	"postal_code",
	"country",
	"phone",
	"email",
	"employee_count",
	"customers",
	"investors",
	"parent_company",
	"financial_info",
}

// Columns returns the persisted column names in record order.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

func tableOrDefault(table string) string {
	if table == "" {
		return DefaultTable
	}
	return table
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTargets(r *model.CompanyRecord) []any {
	return []any{
		&r.Name,
		&r.Website,
		&r.Description,
		&r.Industry,
		&r.SoftwareClassification,
		&r.EnterpriseGrade,
		&r.Geography,
		&r.StreetAddress,
		&r.City,
		&r.PostalCode,
		&r.Country,
		&r.Phone,
		&r.Email,
		&r.EmployeeCount,
		&r.Customers,
		&r.Investors,
		&r.ParentCompany,
		&r.FinancialInfo,
	}
}

func insertArgs(id string, rec model.CompanyRecord) []any {
	vals := rec.Values()
	args := make([]any, 0, len(vals)+1)
	args = append(args, id)
	for _, v := range vals {
		args = append(args, v)
	}
	return args
}

// columnDDL renders the attribute columns for CREATE TABLE.
func columnDDL() string {
	var out string
	for _, c := range columns[1:] {
		out += "\t" + c + " TEXT NOT NULL DEFAULT '',\n"
	}
	return out
}
