package ingest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// buildColumnIndex creates a map from column name to array index.
func buildColumnIndex(columns []Column) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, col := range columns {
		idx[col.Name] = i
	}
	return idx
}

// getString safely extracts a string from row data.
func getString(row []interface{}, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprintf("%v", row[i])
}

// getBool safely extracts a boolean from row data.
func getBool(row []interface{}, idx map[string]int, col string) bool {
	i, ok := idx[col]
	if !ok || i >= len(row) || row[i] == nil {
		return false
	}
	switch v := row[i].(type) {
	case bool:
		return v
	case string:
		return v == "Y" || v == "true" || v == "1"
	case float64:
		return v != 0
	}
	return false
}

// getDecimal safely extracts a decimal from row data.
func getDecimal(row []interface{}, idx map[string]int, col string) *decimal.Decimal {
	i, ok := idx[col]
	if !ok || i >= len(row) || row[i] == nil {
		return nil
	}
	switch v := row[i].(type) {
	case float64:
		d := decimal.NewFromFloat(v)
		return &d
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil
		}
		return &d
	}
	return nil
}

// getTime safely extracts a time.Time from row data (expects YYYY-MM-DD format).
func getTime(row []interface{}, idx map[string]int, col string) *time.Time {
	i, ok := idx[col]
	if !ok || i >= len(row) || row[i] == nil {
		return nil
	}
	if s, ok := row[i].(string); ok && s != "" {
		formats := []string{
			"2006-01-02",
			"2006-01-02T15:04:05.000Z",
			"2006-01-02 15:04:05",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

// ParseBanks parses a BANKS listing response into typed rows.
func ParseBanks(resp *Response) ([]BankRow, error) {
	idx := buildColumnIndex(resp.Datatable.Columns)
	rows := make([]BankRow, 0, len(resp.Datatable.Data))

	for _, row := range resp.Datatable.Data {
		br := BankRow{
			Ticker:      getString(row, idx, "ticker"),
			Name:        getString(row, idx, "name"),
			Sector:      getString(row, idx, "sector"),
			Tier:        getString(row, idx, "tier"),
			IsDelisted:  getBool(row, idx, "isdelisted"),
			LastUpdated: getTime(row, idx, "lastupdated"),
		}
		if br.Ticker != "" {
			rows = append(rows, br)
		}
	}

	return rows, nil
}

// ParseFinancials parses an FA_QUARTERLY / FA_ANNUAL response into typed
// rows. freq tags the rows "Q" or "Y"; rows without a ticker or period are
// dropped.
func ParseFinancials(resp *Response, freq string) ([]FinancialRow, error) {
	idx := buildColumnIndex(resp.Datatable.Columns)
	rows := make([]FinancialRow, 0, len(resp.Datatable.Data))

	for _, row := range resp.Datatable.Data {
		fr := FinancialRow{
			Ticker:      getString(row, idx, "ticker"),
			Freq:        freq,
			Period:      getString(row, idx, "period"),
			LastUpdated: getTime(row, idx, "lastupdated"),

			TOI:        getDecimal(row, idx, "toi"),
			PBT:        getDecimal(row, idx, "pbt"),
			NII:        getDecimal(row, idx, "nii"),
			FeeIncome:  getDecimal(row, idx, "fee_income"),
			OPEX:       getDecimal(row, idx, "opex"),
			Provisions: getDecimal(row, idx, "provisions"),
			Loans:      getDecimal(row, idx, "loans"),
			NIM:        getDecimal(row, idx, "nim"),
		}
		if fr.Ticker != "" && fr.Period != "" {
			rows = append(rows, fr)
		}
	}

	return rows, nil
}
