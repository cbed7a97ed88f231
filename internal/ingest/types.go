package ingest

import (
	"time"

	"github.com/shopspring/decimal"
)

// Response is the raw response from the financials datatable API.
// The data is column-oriented: columns define the schema, data contains rows
// as arrays.
type Response struct {
	Datatable struct {
		Data    [][]interface{} `json:"data"`
		Columns []Column        `json:"columns"`
	} `json:"datatable"`
	Meta struct {
		NextCursorID *string `json:"next_cursor_id"`
	} `json:"meta"`
}

// Column describes a column in the response.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// BankRow represents a row from the BANKS listing table.
type BankRow struct {
	Ticker      string
	Name        string
	Sector      string
	Tier        string
	IsDelisted  bool
	LastUpdated *time.Time
}

// FinancialRow represents one reported period from the FA_QUARTERLY or
// FA_ANNUAL statement tables. Metric values are in billions of VND; OPEX and
// provisions arrive expense-signed.
type FinancialRow struct {
	Ticker      string
	Freq        string // "Q" or "Y"
	Period      string // "2024Q1" or "2024"
	LastUpdated *time.Time

	TOI        *decimal.Decimal
	PBT        *decimal.Decimal
	NII        *decimal.Decimal
	FeeIncome  *decimal.Decimal
	OPEX       *decimal.Decimal
	Provisions *decimal.Decimal
	Loans      *decimal.Decimal
	NIM        *decimal.Decimal
}
