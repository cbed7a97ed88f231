package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Bank struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector"`
	Tier      string    `json:"tier"` // SOCB, Tier1, Tier2, or an aggregate label
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BankMetric is one reported period of bank-level aggregates, in billions of
// VND. Freq is "Q" or "Y"; Period is the label ("2024Q1" / "2024"). OPEX and
// Provisions are expense-signed.
type BankMetric struct {
	ID          int              `json:"id"`
	Ticker      string           `json:"ticker"`
	Freq        string           `json:"freq"`
	Period      string           `json:"period"`
	TOI         *decimal.Decimal `json:"toi"`
	PBT         *decimal.Decimal `json:"pbt"`
	NII         *decimal.Decimal `json:"nii"`
	FeeIncome   *decimal.Decimal `json:"fee_income"`
	OPEX        *decimal.Decimal `json:"opex"`
	Provisions  *decimal.Decimal `json:"provisions"`
	Loans       *decimal.Decimal `json:"loans"`
	NIM         *decimal.Decimal `json:"nim"`
	LastUpdated *time.Time       `json:"last_updated"` // from the upstream API
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// MetricVector groups the metric columns a decomposition row carries three
// times over (current, prior, change).
type MetricVector struct {
	TOI          *decimal.Decimal `json:"toi"`
	PBT          *decimal.Decimal `json:"pbt"`
	NII          *decimal.Decimal `json:"nii"`
	FeeIncome    *decimal.Decimal `json:"fee_income"`
	OPEX         *decimal.Decimal `json:"opex"`
	Provisions   *decimal.Decimal `json:"provisions"`
	Loans        *decimal.Decimal `json:"loans"`
	NIM          *decimal.Decimal `json:"nim"`
	CoreRevenue  *decimal.Decimal `json:"core_revenue"`
	CoreProfit   *decimal.Decimal `json:"core_profit"`
	NonRecurring *decimal.Decimal `json:"non_recurring"`
}

// ScoreVector groups the nine attributed components, reused for scores and
// impacts.
type ScoreVector struct {
	TopLine      *decimal.Decimal `json:"top_line"`
	Cost         *decimal.Decimal `json:"cost"`
	NonRecurring *decimal.Decimal `json:"non_recurring"`
	NII          *decimal.Decimal `json:"nii"`
	Fee          *decimal.Decimal `json:"fee"`
	OPEX         *decimal.Decimal `json:"opex"`
	Provisions   *decimal.Decimal `json:"provisions"`
	Loan         *decimal.Decimal `json:"loan"`
	Margin       *decimal.Decimal `json:"margin"`
}

// DecompositionRow is the stored output row, uniquely keyed by
// (ticker, horizon, period). Comparison fields are null for periods without
// sufficient history.
type DecompositionRow struct {
	ID      int    `json:"id"`
	Ticker  string `json:"ticker"`
	Horizon string `json:"horizon"`
	Period  string `json:"period"`

	Current MetricVector `json:"current"`
	Prior   MetricVector `json:"prior"`
	Change  MetricVector `json:"change"`

	GrowthPct *decimal.Decimal `json:"growth_pct"`
	Scores    ScoreVector      `json:"scores"`
	Impacts   ScoreVector      `json:"impacts"`
	ImpactGap *decimal.Decimal `json:"impact_gap"`

	SmallDenom   bool `json:"small_denom"`
	Capped       bool `json:"capped"`
	Inconsistent bool `json:"inconsistent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
