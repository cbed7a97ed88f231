package engine

import "math"

// growthTolerance bounds the acceptable gap between summed impacts and the
// PBT growth rate before a row is marked inconsistent.
const growthTolerance = 1e-6

// Attribute converts a comparison's change vector into normalized scores and
// percentage-point impacts. A comparison without change data passes through
// as a row with nil score and impact fields.
func Attribute(cmp Comparison, p Params) DecompositionRow {
	row := DecompositionRow{
		Ticker:    cmp.Ticker,
		Horizon:   cmp.Horizon,
		Period:    cmp.Period,
		Current:   cmp.Current,
		Prior:     cmp.Prior,
		Change:    cmp.Change,
		GrowthPct: cmp.GrowthPct,
	}
	if cmp.Change == nil {
		return row
	}
	change := *cmp.Change

	denom := math.Abs(change.PBT)
	if denom < p.DenomFloor {
		denom = p.DenomFloor
		row.SmallDenom = true
	}

	// All raw scores share the floored denominator, so
	// TopLine = NII + Fee, Cost = OPEX + Provisions, and
	// TopLine + Cost + NonRecurring = Change.PBT/denom*100 hold exactly
	// before capping.
	raw := Scores{
		TopLine:      change.CoreRevenue / denom * 100,
		Cost:         (change.OPEX + change.Provisions) / denom * 100,
		NonRecurring: change.NonRecurring / denom * 100,
		NII:          change.NII / denom * 100,
		Fee:          change.FeeIncome / denom * 100,
		OPEX:         change.OPEX / denom * 100,
		Provisions:   change.Provisions / denom * 100,
	}

	// Loan/margin split of the NII score: half the loan book's growth rate
	// approximates the volume effect; margin is the residual so the pair
	// still sums to the NII score exactly.
	if cmp.Prior != nil && cmp.Prior.Loans != 0 {
		loanGrowthPct := change.Loans / math.Abs(cmp.Prior.Loans) * 100
		raw.Loan = loanGrowthPct / 2
	}
	raw.Margin = raw.NII - raw.Loan

	capped := Scores{
		TopLine:      clamp(raw.TopLine, p.ScoreCap, &row.Capped),
		Cost:         clamp(raw.Cost, p.ScoreCap, &row.Capped),
		NonRecurring: clamp(raw.NonRecurring, p.ScoreCap, &row.Capped),
		NII:          clamp(raw.NII, p.ScoreCap, &row.Capped),
		Fee:          clamp(raw.Fee, p.ScoreCap, &row.Capped),
		OPEX:         clamp(raw.OPEX, p.ScoreCap, &row.Capped),
		Provisions:   clamp(raw.Provisions, p.ScoreCap, &row.Capped),
		Loan:         clamp(raw.Loan, p.ScoreCap, &row.Capped),
		Margin:       clamp(raw.Margin, p.ScoreCap, &row.Capped),
	}
	row.Scores = &capped

	if cmp.GrowthPct == nil {
		return row
	}
	scale := math.Abs(*cmp.GrowthPct) / 100
	impacts := Scores{
		TopLine:      capped.TopLine * scale,
		Cost:         capped.Cost * scale,
		NonRecurring: capped.NonRecurring * scale,
		NII:          capped.NII * scale,
		Fee:          capped.Fee * scale,
		OPEX:         capped.OPEX * scale,
		Provisions:   capped.Provisions * scale,
		Loan:         capped.Loan * scale,
		Margin:       capped.Margin * scale,
	}
	row.Impacts = &impacts

	total := impacts.TopLine + impacts.Cost + impacts.NonRecurring
	gap := total - *cmp.GrowthPct
	row.ImpactGap = &gap
	row.Inconsistent = math.Abs(gap) > growthTolerance*math.Max(1, math.Abs(*cmp.GrowthPct))

	return row
}

func clamp(v, limit float64, altered *bool) float64 {
	if v > limit {
		*altered = true
		return limit
	}
	if v < -limit {
		*altered = true
		return -limit
	}
	return v
}
