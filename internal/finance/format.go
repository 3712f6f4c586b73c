package finance

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

// FormatNumber renders v with a B, M or K suffix at 1e9, 1e6 and 1e3.
// Values below 1000 in magnitude are rendered as integers.
func FormatNumber(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	a := math.Abs(v)
	switch {
	case a >= 1_000_000_000:
		return fmt.Sprintf("%s%.2fB", sign, a/1_000_000_000)
	case a >= 1_000_000:
		return fmt.Sprintf("%s%.2fM", sign, a/1_000_000)
	case a >= 1_000:
		return fmt.Sprintf("%s%.2fK", sign, a/1_000)
	default:
		return strconv.FormatInt(int64(v), 10)
	}
}

// Amount formats a point-in-time figure such as market cap. Zero is absent.
func Amount(v float64) string {
	if v == 0 {
		return ""
	}
	return currency(v)
}

// Annual formats a yearly figure such as revenue. Zero is absent.
func Annual(v float64) string {
	if v == 0 {
		return ""
	}
	return currency(v) + "/yr"
}

func currency(v float64) string {
	if v < 0 {
		return "-$" + FormatNumber(-v)
	}
	return "$" + FormatNumber(v)
}

// FinancialInfo assembles the pipe-delimited Financial Info value from a
// snapshot. A snapshot without figures yields model.NoFinancialInfo.
func FinancialInfo(s model.FinancialSnapshot) string {
	if !s.HasFigures() {
		return model.NoFinancialInfo
	}

	var parts []string
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Revenue", s.Revenue)
	add("Market Cap", s.MarketCap)
	add("Gross Profit", s.GrossProfit)
	add("Operating Cash Flow", s.OperatingCashFlow)
	if s.Source != "" {
		parts = append(parts, fmt.Sprintf("Source: %s (%s)", s.Source, s.RetrievedOn))
	}
	return strings.Join(parts, " | ")
}

var financialTerms = []string{"revenue", "million", "billion", "$", "usd", "funding", "raised"}

// MergeFinancialInfo picks the Financial Info value for a new record.
// Provider figures win. Otherwise extracted text is kept when it reads like
// financial data; anything else becomes model.NoFinancialInfo.
func MergeFinancialInfo(s model.FinancialSnapshot, extracted string) string {
	if s.HasFigures() {
		return FinancialInfo(s)
	}
	if LooksFinancial(extracted) {
		return strings.TrimSpace(extracted)
	}
	return model.NoFinancialInfo
}

// LooksFinancial reports whether text mentions a financial term.
func LooksFinancial(text string) bool {
	if strings.TrimSpace(text) == "" || text == model.NoFinancialInfo {
		return false
	}
	lower := strings.ToLower(text)
	for _, t := range financialTerms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
