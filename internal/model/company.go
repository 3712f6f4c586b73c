package model

// NoFinancialInfo is stored when no provider or extraction produced financial data.
const NoFinancialInfo = "No financial information available"

// Columns is the persisted and exported column order for a CompanyRecord.
var Columns = []string{
	"Company Name",
	"Website",
	"Description",
	"Industry",
	"Software Classification",
	"Enterprise Grade Classification",
	"Geography",
	"Street Address",
	"City",
	"Postal Code",
	"Country",
	"Phone",
	"Email",
	"Employee Count",
	"Customers",
	"Investors",
	"Parent Company",
	"Financial Info",
}

// CompanyRecord is the enriched, fixed-width record for one company.
// Every attribute is a plain string; unknown values are "".
type CompanyRecord struct {
	Name                   string `json:"company_name"`
	Website                string `json:"website"`
	Description            string `json:"description"`
	Industry               string `json:"industry"`
	SoftwareClassification string `json:"software_classification"`
	EnterpriseGrade        string `json:"enterprise_grade_classification"`
	Geography              string `json:"geography"`
	StreetAddress          string `json:"street_address"`
	City                   string `json:"city"`
	PostalCode             string `json:"postal_code"`
	Country                string `json:"country"`
	Phone                  string `json:"phone"`
	Email                  string `json:"email"`
	EmployeeCount          string `json:"employee_count"`
	Customers              string `json:"customers"`
	Investors              string `json:"investors"`
	ParentCompany          string `json:"parent_company"`
	FinancialInfo          string `json:"financial_info"`
}

// NewCompanyRecord returns an empty record for the given company and website.
func NewCompanyRecord(name, website string) CompanyRecord {
	return CompanyRecord{Name: name, Website: website}
}

// Values returns the record's attributes in Columns order.
func (r CompanyRecord) Values() []string {
	return []string{
		r.Name,
		r.Website,
		r.Description,
		r.Industry,
		r.SoftwareClassification,
		r.EnterpriseGrade,
		r.Geography,
		r.StreetAddress,
		r.City,
		r.PostalCode,
		r.Country,
		r.Phone,
		r.Email,
		r.EmployeeCount,
		r.Customers,
		r.Investors,
		r.ParentCompany,
		r.FinancialInfo,
	}
}

// FromValues builds a record from attributes in Columns order. Missing
// trailing values are left empty.
func FromValues(values []string) CompanyRecord {
	v := make([]string, len(Columns))
	copy(v, values)
	return CompanyRecord{
		Name:                   v[0],
		Website:                v[1],
		Description:            v[2],
		Industry:               v[3],
		SoftwareClassification: v[4],
		EnterpriseGrade:        v[5],
		Geography:              v[6],
		StreetAddress:          v[7],
		City:                   v[8],
		PostalCode:             v[9],
		Country:                v[10],
		Phone:                  v[11],
		Email:                  v[12],
		EmployeeCount:          v[13],
		Customers:              v[14],
		Investors:              v[15],
		ParentCompany:          v[16],
		FinancialInfo:          v[17],
	}
}

// Fields returns pointers to the extractable attributes keyed by column name.
// Company Name and Website are not included.
func (r *CompanyRecord) Fields() map[string]*string {
	return map[string]*string{
		"Description":                     &r.Description,
		"Industry":                        &r.Industry,
		"Software Classification":         &r.SoftwareClassification,
		"Enterprise Grade Classification": &r.EnterpriseGrade,
		"Geography":                       &r.Geography,
		"Street Address":                  &r.StreetAddress,
		"City":                            &r.City,
		"Postal Code":                     &r.PostalCode,
		"Country":                         &r.Country,
		"Phone":                           &r.Phone,
		"Email":                           &r.Email,
		"Employee Count":                  &r.EmployeeCount,
		"Customers":                       &r.Customers,
		"Investors":                       &r.Investors,
		"Parent Company":                  &r.ParentCompany,
		"Financial Info":                  &r.FinancialInfo,
	}
}

// NeedsFinancialRefresh reports whether the stored financial info is missing
// or still the placeholder sentinel.
func (r CompanyRecord) NeedsFinancialRefresh() bool {
	return r.FinancialInfo == "" || r.FinancialInfo == NoFinancialInfo
}
