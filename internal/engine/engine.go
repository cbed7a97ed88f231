// Package engine implements the earnings-quality decomposition: for each
// entity, period and comparison horizon it explains how much of the PBT
// growth rate came from core revenue, cost management and non-recurring
// items, with sub-attribution of revenue into net-interest and fee
// components and of net interest into loan-volume and margin components.
//
// The engine is pure computation over one entity's ordered series at a time:
// no I/O, no shared state, identical input always yields identical rows.
package engine

import (
	"fmt"
	"sync"
)

// EntitySeries is one entity's full input: its quarterly and annual records,
// each chronologically ordered and deduplicated by period marker. Aggregated
// tier or sector pseudo-entities are just more series.
type EntitySeries struct {
	Ticker    string
	Quarterly []PeriodRecord
	Annual    []PeriodRecord
}

// EntityError records a per-entity failure. One malformed series never
// aborts the run; the entity is failed and the rest proceed.
type EntityError struct {
	Ticker string
	Err    error
}

func (e EntityError) Error() string {
	return fmt.Sprintf("entity %s: %v", e.Ticker, e.Err)
}

func (e EntityError) Unwrap() error { return e.Err }

// Result is a full run's output: every emitted row, in input entity order,
// plus the entities that failed their series preconditions.
type Result struct {
	Rows   []DecompositionRow
	Failed []EntityError
}

// Engine runs the three-stage decomposition over independent entity series.
type Engine struct {
	params Params
}

// New returns an engine with the given attribution parameters. Non-positive
// worker counts fall back to a single-threaded pass.
func New(params Params) *Engine {
	if params.Workers <= 0 {
		params.Workers = 1
	}
	return &Engine{params: params}
}

// Run processes every entity and assembles the output rows. Entities are
// independent, so they fan out across the configured workers; output order
// follows input order regardless of scheduling.
func (e *Engine) Run(series []EntitySeries) Result {
	type entityOut struct {
		rows []DecompositionRow
		err  error
	}
	outs := make([]entityOut, len(series))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.params.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rows, err := e.RunEntity(series[i])
				outs[i] = entityOut{rows: rows, err: err}
			}
		}()
	}
	for i := range series {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var result Result
	for i, out := range outs {
		if out.err != nil {
			result.Failed = append(result.Failed, EntityError{Ticker: series[i].Ticker, Err: out.err})
			continue
		}
		result.Rows = append(result.Rows, out.rows...)
	}
	return result
}

// RunEntity runs preparation, comparison and attribution for one entity:
// the quarterly series under the QoQ, YoY and T12M horizons, the annual
// series under its single comparison.
func (e *Engine) RunEntity(s EntitySeries) ([]DecompositionRow, error) {
	var rows []DecompositionRow

	if len(s.Quarterly) > 0 {
		derived, err := PrepareSeries(s.Quarterly)
		if err != nil {
			return nil, fmt.Errorf("quarterly series: %w", err)
		}
		rolling := RollingT12M(derived)
		for _, h := range Horizons {
			if !h.AppliesTo(Quarterly) {
				continue
			}
			for _, cmp := range Compare(h, derived, rolling) {
				rows = append(rows, Attribute(cmp, e.params))
			}
		}
	}

	if len(s.Annual) > 0 {
		derived, err := PrepareSeries(s.Annual)
		if err != nil {
			return nil, fmt.Errorf("annual series: %w", err)
		}
		for _, cmp := range Compare(AnnualComp, derived, nil) {
			rows = append(rows, Attribute(cmp, e.params))
		}
	}

	return rows, nil
}
