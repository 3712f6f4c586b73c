package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesMatchColumns(t *testing.T) {
	t.Parallel()

	rec := CompanyRecord{
		Name:          "Acme Corp",
		Website:       "https://acme.example",
		Email:         "info@acme.example",
		FinancialInfo: NoFinancialInfo,
	}
	values := rec.Values()
	require.Len(t, values, len(Columns))
	assert.Equal(t, "Acme Corp", values[0])
	assert.Equal(t, "https://acme.example", values[1])
	assert.Equal(t, "info@acme.example", values[12])
	assert.Equal(t, NoFinancialInfo, values[len(values)-1])
	assert.Equal(t, rec, FromValues(values))
}

func TestFromValuesShortRow(t *testing.T) {
	t.Parallel()

	rec := FromValues([]string{"Acme Corp"})
	assert.Equal(t, NewCompanyRecord("Acme Corp", ""), rec)
}

func TestFieldsCoverExtractableColumns(t *testing.T) {
	t.Parallel()

	var rec CompanyRecord
	fields := rec.Fields()
	assert.Len(t, fields, len(Columns)-2)
	assert.NotContains(t, fields, "Company Name")
	assert.NotContains(t, fields, "Website")

	for _, col := range Columns[2:] {
		ptr, ok := fields[col]
		require.True(t, ok, "missing field %q", col)
		*ptr = col
	}
	assert.Equal(t, Columns[2:], rec.Values()[2:])
}

func TestNeedsFinancialRefresh(t *testing.T) {
	t.Parallel()

	tests := []struct {
		info string
		want bool
	}{
		{"", true},
		{NoFinancialInfo, true},
		{"Revenue: $2.50B/yr", false},
	}
	for _, tt := range tests {
		t.Run(tt.info, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CompanyRecord{FinancialInfo: tt.info}.NeedsFinancialRefresh())
		})
	}
}

func TestDedupCandidates(t *testing.T) {
	t.Parallel()

	in := []URLCandidate{
		{URL: "https://a.example/about", Provenance: ProvenanceSitemap},
		{URL: "https://a.example/about", Provenance: ProvenanceTemplate},
		{URL: "https://a.example/team", Provenance: ProvenanceTemplate},
	}
	out := DedupCandidates(in)
	require.Len(t, out, 2)
	assert.Equal(t, ProvenanceSitemap, out[0].Provenance, "first occurrence wins")
	assert.Equal(t, []string{"https://a.example/about", "https://a.example/team"}, CandidateURLs(out))
}

func TestAllTemplated(t *testing.T) {
	t.Parallel()

	assert.False(t, AllTemplated(nil))
	assert.True(t, AllTemplated([]URLCandidate{{URL: "x", Provenance: ProvenanceTemplate}}))
	assert.False(t, AllTemplated([]URLCandidate{
		{URL: "x", Provenance: ProvenanceTemplate},
		{URL: "y", Provenance: ProvenanceSitemap},
	}))
}

func TestFinancialSnapshotHasFigures(t *testing.T) {
	t.Parallel()

	assert.False(t, FinancialSnapshot{Source: "Yahoo Finance", RetrievedOn: "2026-10-14"}.HasFigures())
	assert.True(t, FinancialSnapshot{GrossProfit: "$1.00M/yr"}.HasFigures())
}
