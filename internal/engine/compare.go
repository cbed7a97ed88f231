package engine

import "math"

// Comparison pairs one period's metrics with its reference period under a
// single horizon. Prior, Change and GrowthPct are nil when no qualifying
// prior exists (insufficient history) -- the pair is still produced.
type Comparison struct {
	Ticker  string
	Horizon Horizon
	Period  Period

	Current Metrics
	Prior   *Metrics
	Change  *Metrics

	// GrowthPct = Change.PBT / |Prior.PBT| * 100. Nil when the prior is
	// absent or its PBT is zero.
	GrowthPct *float64
}

// Compare pairs every record of a prepared series with its prior under the
// given horizon. For T12M both sides of the pair are rolling aggregates;
// where the current aggregate is undefined the single-quarter metrics stand
// in as identification and the comparison fields stay nil.
func Compare(h Horizon, derived []DerivedRecord, rolling map[int]RollingAggregate) []Comparison {
	byIndex := make(map[int]Metrics, len(derived))
	for _, rec := range derived {
		byIndex[rec.Period.Index()] = rec.Metrics
	}

	out := make([]Comparison, 0, len(derived))
	for _, rec := range derived {
		cmp := Comparison{Ticker: rec.Ticker, Horizon: h, Period: rec.Period, Current: rec.Metrics}

		priorPeriod := h.PriorPeriod(rec.Period)
		if h == T12M {
			cur, ok := rolling[rec.Period.Index()]
			if ok {
				cmp.Current = cur.Metrics
				if prior, ok := rolling[priorPeriod.Index()]; ok {
					fill(&cmp, prior.Metrics)
				}
			}
		} else if prior, ok := byIndex[priorPeriod.Index()]; ok {
			fill(&cmp, prior)
		}

		out = append(out, cmp)
	}
	return out
}

// fill completes a comparison against a located prior metric vector.
func fill(cmp *Comparison, prior Metrics) {
	cur := cmp.Current
	change := Metrics{
		TOI:          cur.TOI - prior.TOI,
		PBT:          cur.PBT - prior.PBT,
		NII:          cur.NII - prior.NII,
		FeeIncome:    cur.FeeIncome - prior.FeeIncome,
		OPEX:         cur.OPEX - prior.OPEX,
		Provisions:   cur.Provisions - prior.Provisions,
		Loans:        cur.Loans - prior.Loans,
		NIM:          cur.NIM - prior.NIM,
		CoreRevenue:  cur.CoreRevenue - prior.CoreRevenue,
		CoreProfit:   cur.CoreProfit - prior.CoreProfit,
		NonRecurring: cur.NonRecurring - prior.NonRecurring,
	}

	cmp.Prior = &prior
	cmp.Change = &change
	if prior.PBT != 0 {
		growth := change.PBT / math.Abs(prior.PBT) * 100
		cmp.GrowthPct = &growth
	}
}
