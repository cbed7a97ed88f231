package engine

import (
	"math"
	"testing"
)

// quarterSeries builds n complete consecutive quarters starting at 2022Q1.
func quarterSeries(n int, pbt func(i int) float64) []DerivedRecord {
	start, _ := ParsePeriod("2022Q1")
	records := make([]PeriodRecord, 0, n)
	for i := 0; i < n; i++ {
		r := qrec(start.AddQuarters(i).String(), pbt(i))
		records = append(records, r)
	}
	derived, err := PrepareSeries(records)
	if err != nil {
		panic(err)
	}
	return derived
}

func TestCompareHistoryGating(t *testing.T) {
	derived := quarterSeries(6, func(i int) float64 { return 1000 + float64(i)*100 })
	rolling := RollingT12M(derived)

	qoq := Compare(QoQ, derived, rolling)
	if len(qoq) != 6 {
		t.Fatalf("Expected a QoQ row per period, got %d", len(qoq))
	}
	if qoq[0].Change != nil || qoq[0].GrowthPct != nil {
		t.Error("First quarter must not be QoQ-comparable")
	}
	for i := 1; i < 6; i++ {
		if qoq[i].Change == nil {
			t.Errorf("Expected QoQ comparison at period %d", i+1)
		}
	}

	for _, h := range []Horizon{YoY, T12M} {
		rows := Compare(h, derived, rolling)
		if len(rows) != 6 {
			t.Fatalf("%s: expected 6 rows, got %d", h, len(rows))
		}
		for i := 0; i < 4; i++ {
			if rows[i].Change != nil {
				t.Errorf("%s: period %d must not be comparable yet", h, i+1)
			}
		}
		for i := 4; i < 6; i++ {
			if rows[i].Change == nil {
				t.Errorf("%s: expected comparison at period %d", h, i+1)
			}
		}
	}
}

func TestCompareQoQChangeAndGrowth(t *testing.T) {
	derived := quarterSeries(2, func(i int) float64 { return 1000 + float64(i)*250 })
	rows := Compare(QoQ, derived, nil)

	cmp := rows[1]
	if cmp.Change == nil || cmp.GrowthPct == nil {
		t.Fatal("Expected a filled comparison")
	}
	if cmp.Change.PBT != 250 {
		t.Errorf("Expected PBT change 250, got %f", cmp.Change.PBT)
	}
	if math.Abs(*cmp.GrowthPct-25) > 1e-9 {
		t.Errorf("Expected growth 25%%, got %f", *cmp.GrowthPct)
	}
	if cmp.Prior == nil || cmp.Prior.PBT != 1000 {
		t.Error("Expected prior metrics to be carried on the row")
	}
}

func TestCompareGrowthUsesAbsolutePrior(t *testing.T) {
	// Loss narrowing from -200 to -150: growth is +25%, not -25%.
	derived := quarterSeries(2, func(i int) float64 { return -200 + float64(i)*50 })
	rows := Compare(QoQ, derived, nil)

	cmp := rows[1]
	if cmp.GrowthPct == nil {
		t.Fatal("Expected growth to be defined")
	}
	if math.Abs(*cmp.GrowthPct-25) > 1e-9 {
		t.Errorf("Expected +25%% against |prior|, got %f", *cmp.GrowthPct)
	}
}

func TestCompareZeroPriorPBTHasNoGrowth(t *testing.T) {
	derived := quarterSeries(2, func(i int) float64 { return float64(i) * 300 })
	rows := Compare(QoQ, derived, nil)

	cmp := rows[1]
	if cmp.Change == nil {
		t.Fatal("Expected change to be defined")
	}
	if cmp.GrowthPct != nil {
		t.Errorf("Expected undefined growth against zero prior PBT, got %f", *cmp.GrowthPct)
	}
}

func TestCompareT12MUsesRollingAggregates(t *testing.T) {
	derived := quarterSeries(8, func(i int) float64 { return 1000 + float64(i)*100 })
	rolling := RollingT12M(derived)
	rows := Compare(T12M, derived, rolling)

	// Period 8 (2023Q4): current window Q5..Q8, prior window Q4..Q7 (the
	// rolling aggregate whose span reaches back four quarters).
	cmp := rows[7]
	if cmp.Change == nil {
		t.Fatal("Expected T12M comparison at period 8")
	}
	wantCurrent := 1400.0 + 1500 + 1600 + 1700
	wantPrior := 1300.0 + 1400 + 1500 + 1600
	if cmp.Current.PBT != wantCurrent {
		t.Errorf("Expected rolling current PBT %f, got %f", wantCurrent, cmp.Current.PBT)
	}
	if cmp.Prior.PBT != wantPrior {
		t.Errorf("Expected rolling prior PBT %f, got %f", wantPrior, cmp.Prior.PBT)
	}
	if cmp.Change.PBT != wantCurrent-wantPrior {
		t.Errorf("Expected rolling PBT change %f, got %f", wantCurrent-wantPrior, cmp.Change.PBT)
	}

	// Periods 1-4 cannot carry a prior window; period 5 is the first with
	// both windows defined.
	for i := 0; i < 4; i++ {
		if rows[i].Change != nil {
			t.Errorf("Period %d must not be T12M-comparable", i+1)
		}
	}
	if rows[4].Change == nil {
		t.Error("Expected T12M comparison at period 5")
	}
}

func TestCompareAnnual(t *testing.T) {
	mk := func(year string, pbt float64) PeriodRecord {
		r := qrec("2024Q1", pbt) // reuse the metric fill, then overwrite the marker
		p, _ := ParsePeriod(year)
		r.Period = p
		return r
	}
	derived, err := PrepareSeries([]PeriodRecord{mk("2022", 4000), mk("2023", 5000)})
	if err != nil {
		t.Fatalf("PrepareSeries failed: %v", err)
	}

	rows := Compare(AnnualComp, derived, nil)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 annual rows, got %d", len(rows))
	}
	if rows[0].Change != nil {
		t.Error("First year must not be comparable")
	}
	if rows[1].Change == nil || rows[1].Change.PBT != 1000 {
		t.Error("Expected year-on-year PBT change 1000")
	}
	if math.Abs(*rows[1].GrowthPct-25) > 1e-9 {
		t.Errorf("Expected 25%% annual growth, got %f", *rows[1].GrowthPct)
	}
}

func TestHorizonApplicability(t *testing.T) {
	for _, h := range []Horizon{QoQ, YoY, T12M} {
		if !h.AppliesTo(Quarterly) || h.AppliesTo(Annual) {
			t.Errorf("%s applicability wrong", h)
		}
	}
	if AnnualComp.AppliesTo(Quarterly) || !AnnualComp.AppliesTo(Annual) {
		t.Error("ANNUAL applicability wrong")
	}
}
