package engine

// PeriodRecord is one entity's reported aggregates for a single period.
// Raw metrics are pointers so an unreported field is representable; OPEX and
// Provisions are expense-signed (negative). Units are billions of local
// currency throughout.
type PeriodRecord struct {
	Ticker string
	Period Period

	TOI        *float64 // total operating income
	PBT        *float64 // profit before tax
	NII        *float64 // net interest income
	FeeIncome  *float64
	OPEX       *float64
	Provisions *float64
	Loans      *float64 // gross loan balance (stock)
	NIM        *float64 // net interest margin, pct
}

// complete reports whether every required raw metric is present.
func (r PeriodRecord) complete() bool {
	for _, v := range []*float64{r.TOI, r.PBT, r.NII, r.FeeIncome, r.OPEX, r.Provisions, r.Loans, r.NIM} {
		if v == nil {
			return false
		}
	}
	return true
}

// Metrics is the dense metric vector carried through comparison and
// attribution. CoreRevenue, CoreProfit and NonRecurring are derived so that
// PBT = CoreProfit + NonRecurring holds exactly.
type Metrics struct {
	TOI        float64
	PBT        float64
	NII        float64
	FeeIncome  float64
	OPEX       float64
	Provisions float64
	Loans      float64
	NIM        float64

	CoreRevenue  float64
	CoreProfit   float64
	NonRecurring float64
}

// DerivedRecord is a PeriodRecord with all required metrics present and the
// derived components filled in.
type DerivedRecord struct {
	Ticker string
	Period Period
	Metrics
}

// RollingAggregate is the trailing-twelve-month view ending at Period:
// flow metrics summed over four consecutive quarters, NIM and Loans averaged.
type RollingAggregate struct {
	Period Period
	Metrics
}

// Horizon is a comparison basis. Each variant knows which cadence it applies
// to and how to locate its prior period.
type Horizon string

const (
	QoQ        Horizon = "QOQ"
	YoY        Horizon = "YOY"
	T12M       Horizon = "T12M"
	AnnualComp Horizon = "ANNUAL"
)

// Horizons lists every supported comparison basis.
var Horizons = []Horizon{T12M, QoQ, YoY, AnnualComp}

// AppliesTo reports whether the horizon is defined for the given cadence.
func (h Horizon) AppliesTo(kind PeriodKind) bool {
	if h == AnnualComp {
		return kind == Annual
	}
	return kind == Quarterly
}

// PriorPeriod returns the reference period for a current marker. For T12M
// the marker names the ending quarter of the prior rolling window, whose
// span reaches back exactly four quarters from the current period.
func (h Horizon) PriorPeriod(p Period) Period {
	switch h {
	case QoQ, T12M:
		return p.AddQuarters(-1)
	case YoY:
		return p.AddQuarters(-4)
	default:
		return p.AddYears(-1)
	}
}

// Params are the attribution tunables. Floor is the minimum absolute PBT
// change used as the score denominator; Cap bounds every score to [-Cap, Cap].
type Params struct {
	DenomFloor float64 `yaml:"denom_floor"`
	ScoreCap   float64 `yaml:"score_cap"`
	Workers    int     `yaml:"workers"`
}

// DefaultParams matches the production deployment: floor of 50 (billions),
// cap of 500 percentage points.
func DefaultParams() Params {
	return Params{DenomFloor: 50, ScoreCap: 500, Workers: 4}
}

// Scores holds one value per attributed component, in percentage points.
// The same shape is reused for impacts.
type Scores struct {
	TopLine      float64
	Cost         float64
	NonRecurring float64

	NII        float64
	Fee        float64
	OPEX       float64
	Provisions float64
	Loan       float64
	Margin     float64
}

// DecompositionRow is one emitted output row, uniquely keyed by
// (Ticker, Horizon, Period). Comparison fields are nil when no qualifying
// prior period exists; the row is still emitted so consumers can tell
// "not yet comparable" from "no data".
type DecompositionRow struct {
	Ticker  string
	Horizon Horizon
	Period  Period

	Current Metrics
	Prior   *Metrics
	Change  *Metrics

	GrowthPct *float64
	Scores    *Scores
	Impacts   *Scores

	// ImpactGap is the signed difference between the summed top-level
	// impacts and GrowthPct. Zero (within tolerance) unless flooring or
	// capping broke the reconstruction identity.
	ImpactGap *float64

	SmallDenom   bool
	Capped       bool
	Inconsistent bool
}
