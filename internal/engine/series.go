package engine

import "fmt"

// PrepareSeries derives core revenue, core profit and the non-recurring
// residual for one entity's chronologically ordered records of a single
// cadence. Records missing any required raw metric are skipped, not
// zero-filled. Duplicate or out-of-order period markers are a precondition
// violation and fail the whole series.
func PrepareSeries(records []PeriodRecord) ([]DerivedRecord, error) {
	derived := make([]DerivedRecord, 0, len(records))
	lastIdx := 0
	for i, rec := range records {
		if i > 0 && rec.Period.Index() <= lastIdx {
			return nil, fmt.Errorf("period markers not strictly increasing at %s", rec.Period)
		}
		lastIdx = rec.Period.Index()

		if i > 0 && rec.Period.Kind() != records[0].Period.Kind() {
			return nil, fmt.Errorf("mixed period kinds in series at %s", rec.Period)
		}

		if !rec.complete() {
			continue
		}

		m := Metrics{
			TOI:        *rec.TOI,
			PBT:        *rec.PBT,
			NII:        *rec.NII,
			FeeIncome:  *rec.FeeIncome,
			OPEX:       *rec.OPEX,
			Provisions: *rec.Provisions,
			Loans:      *rec.Loans,
			NIM:        *rec.NIM,
		}
		m.CoreRevenue = m.NII + m.FeeIncome
		m.CoreProfit = m.CoreRevenue + m.OPEX + m.Provisions
		m.NonRecurring = m.PBT - m.CoreProfit

		derived = append(derived, DerivedRecord{Ticker: rec.Ticker, Period: rec.Period, Metrics: m})
	}
	return derived, nil
}

// RollingT12M builds trailing-twelve-month aggregates for a prepared
// quarterly series in a single forward pass, keyed by the ending quarter's
// index. An aggregate exists only where four consecutive quarters end at
// that marker; a gap (including one created by a skipped incomplete record)
// invalidates the aggregate for that quarter and the following three.
func RollingT12M(derived []DerivedRecord) map[int]RollingAggregate {
	out := make(map[int]RollingAggregate, len(derived))

	var window []DerivedRecord
	for _, rec := range derived {
		if n := len(window); n > 0 && rec.Period.Index() != window[n-1].Period.Index()+1 {
			window = window[:0]
		}
		window = append(window, rec)
		if len(window) > 4 {
			window = window[1:]
		}
		if len(window) < 4 {
			continue
		}

		var agg Metrics
		for _, w := range window {
			agg.TOI += w.TOI
			agg.PBT += w.PBT
			agg.NII += w.NII
			agg.FeeIncome += w.FeeIncome
			agg.OPEX += w.OPEX
			agg.Provisions += w.Provisions
			agg.CoreRevenue += w.CoreRevenue
			agg.CoreProfit += w.CoreProfit
			agg.NonRecurring += w.NonRecurring
			agg.Loans += w.Loans
			agg.NIM += w.NIM
		}
		// Loans is a stock and NIM a ratio: both average over the window.
		agg.Loans /= 4
		agg.NIM /= 4

		out[rec.Period.Index()] = RollingAggregate{Period: rec.Period, Metrics: agg}
	}
	return out
}
