package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/earnings-quality/internal/db"
	"github.com/mauv0809/earnings-quality/internal/engine"
	"github.com/mauv0809/earnings-quality/internal/models"
	"github.com/shopspring/decimal"
)

// DecomposeHandler runs the decomposition engine over stored metric series
// and serves the resulting rows.
type DecomposeHandler struct {
	repo   *db.Repository
	params engine.Params
}

// NewDecomposeHandler creates a new decompose handler.
func NewDecomposeHandler(repo *db.Repository, params engine.Params) *DecomposeHandler {
	return &DecomposeHandler{repo: repo, params: params}
}

// DecomposeResponse is the JSON response for a decomposition run.
type DecomposeResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Entities int      `json:"entities"`
	Rows     int      `json:"rows"`
	Failed   []string `json:"failed,omitempty"`
	Elapsed  string   `json:"elapsed,omitempty"`
}

// Decompose handles POST /admin/decompose
// Runs the engine for the requested tickers (default: all active banks) and
// upserts the resulting rows. Query params:
// - ticker: comma-separated tickers (optional)
func (h *DecomposeHandler) Decompose(c echo.Context) error {
	ctx := c.Request().Context()
	start := time.Now()

	var tickers []string
	if tickerParam := c.QueryParam("ticker"); tickerParam != "" {
		tickers = splitTickers(tickerParam)
	} else {
		var err error
		tickers, err = h.repo.GetActiveTickers(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, DecomposeResponse{
				Success: false,
				Message: fmt.Sprintf("Failed to get tickers: %v", err),
			})
		}
	}

	if len(tickers) == 0 {
		return c.JSON(http.StatusBadRequest, DecomposeResponse{
			Success: false,
			Message: "No banks to decompose. Run /admin/ingest/banks first.",
		})
	}

	log.Printf("Starting decomposition run (tickers: %d)...", len(tickers))

	var series []engine.EntitySeries
	var failed []string
	for _, ticker := range tickers {
		s, err := h.loadEntity(ctx, ticker)
		if err != nil {
			log.Printf("Skipping entity %s: %v", ticker, err)
			failed = append(failed, fmt.Sprintf("%s: %v", ticker, err))
			continue
		}
		series = append(series, s)
	}

	result := engine.New(h.params).Run(series)
	for _, ee := range result.Failed {
		log.Printf("Entity failed: %v", ee)
		failed = append(failed, ee.Error())
	}

	count, err := h.repo.UpsertDecompositionRows(ctx, result.Rows)
	if err != nil {
		log.Printf("Error upserting decomposition rows: %v", err)
		return c.JSON(http.StatusInternalServerError, DecomposeResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to upsert rows: %v", err),
		})
	}

	elapsed := time.Since(start)
	log.Printf("Decomposition complete: %d rows for %d entities in %v (%d failed)",
		count, len(series), elapsed, len(failed))

	return c.JSON(http.StatusOK, DecomposeResponse{
		Success:  true,
		Message:  fmt.Sprintf("Decomposed %d entities into %d rows", len(series), count),
		Entities: len(series),
		Rows:     count,
		Failed:   failed,
		Elapsed:  elapsed.String(),
	})
}

// Query handles GET /decomposition
// Returns stored rows filtered by ticker, horizon and period query params.
func (h *DecomposeHandler) Query(c echo.Context) error {
	ctx := c.Request().Context()

	rows, err := h.repo.ListDecompositionRows(ctx,
		c.QueryParam("ticker"), c.QueryParam("horizon"), c.QueryParam("period"))
	if err != nil {
		log.Printf("Error querying decomposition rows: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Failed to query rows: %v", err),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(rows),
		"rows":  rows,
	})
}

// loadEntity assembles one entity's quarterly and annual input series from
// the store.
func (h *DecomposeHandler) loadEntity(ctx context.Context, ticker string) (engine.EntitySeries, error) {
	s := engine.EntitySeries{Ticker: ticker}

	quarterly, err := h.repo.FetchMetricSeries(ctx, ticker, "Q")
	if err != nil {
		return s, fmt.Errorf("loading quarterly series: %w", err)
	}
	annual, err := h.repo.FetchMetricSeries(ctx, ticker, "Y")
	if err != nil {
		return s, fmt.Errorf("loading annual series: %w", err)
	}

	for _, m := range quarterly {
		rec, err := toPeriodRecord(m)
		if err != nil {
			return s, err
		}
		s.Quarterly = append(s.Quarterly, rec)
	}
	for _, m := range annual {
		rec, err := toPeriodRecord(m)
		if err != nil {
			return s, err
		}
		s.Annual = append(s.Annual, rec)
	}
	return s, nil
}

// toPeriodRecord converts a stored metric row to engine input, preserving
// NULLs so the engine can apply its own missing-field rule.
func toPeriodRecord(m models.BankMetric) (engine.PeriodRecord, error) {
	period, err := engine.ParsePeriod(m.Period)
	if err != nil {
		return engine.PeriodRecord{}, fmt.Errorf("metric row %d: %w", m.ID, err)
	}
	return engine.PeriodRecord{
		Ticker:     m.Ticker,
		Period:     period,
		TOI:        toFloat(m.TOI),
		PBT:        toFloat(m.PBT),
		NII:        toFloat(m.NII),
		FeeIncome:  toFloat(m.FeeIncome),
		OPEX:       toFloat(m.OPEX),
		Provisions: toFloat(m.Provisions),
		Loans:      toFloat(m.Loans),
		NIM:        toFloat(m.NIM),
	}, nil
}

func toFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
