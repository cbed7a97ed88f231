package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/earnings-quality/internal/db"
	"github.com/mauv0809/earnings-quality/internal/ingest"
)

// IngestHandler handles data ingestion endpoints.
type IngestHandler struct {
	client *ingest.Client
	repo   *db.Repository
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(client *ingest.Client, repo *db.Repository) *IngestHandler {
	return &IngestHandler{
		client: client,
		repo:   repo,
	}
}

// IngestResponse is the JSON response for ingestion endpoints.
type IngestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`
}

// IngestBanks handles POST /admin/ingest/banks
// Refreshes the bank universe from the upstream listing table.
// Query params:
// - ticker: comma-separated tickers (optional, defaults to all)
func (h *IngestHandler) IngestBanks(c echo.Context) error {
	ctx := c.Request().Context()
	start := time.Now()

	var tickerFilter []string
	if tickerParam := c.QueryParam("ticker"); tickerParam != "" {
		tickerFilter = splitTickers(tickerParam)
		log.Printf("Starting bank ingestion for: %v", tickerFilter)
	} else {
		log.Println("Starting bank ingestion (all banks)...")
	}

	banks, err := h.client.FetchBanks(ctx, tickerFilter)
	if err != nil {
		log.Printf("Error fetching banks: %v", err)
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to fetch banks: %v", err),
		})
	}

	log.Printf("Fetched %d banks from API", len(banks))

	count, err := h.repo.UpsertBanks(ctx, banks)
	if err != nil {
		log.Printf("Error upserting banks: %v", err)
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to upsert banks: %v", err),
		})
	}

	elapsed := time.Since(start)
	log.Printf("Bank ingestion complete: %d banks in %v", count, elapsed)

	return c.JSON(http.StatusOK, IngestResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully ingested %d banks", count),
		Count:   count,
		Elapsed: elapsed.String(),
	})
}

// IngestFinancials handles POST /admin/ingest/financials
// Fetches statement rows. Query params:
// - ticker: comma-separated tickers (optional, defaults to all known banks)
// - freq: comma-separated frequencies (default: Q,Y)
// - full: if "true", fetch all history (default: incremental)
func (h *IngestHandler) IngestFinancials(c echo.Context) error {
	ctx := c.Request().Context()
	start := time.Now()

	var tickerFilter []string
	if tickerParam := c.QueryParam("ticker"); tickerParam != "" {
		tickerFilter = splitTickers(tickerParam)
	} else {
		var err error
		tickerFilter, err = h.repo.GetActiveTickers(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, IngestResponse{
				Success: false,
				Message: fmt.Sprintf("Failed to get tickers: %v", err),
			})
		}
	}

	if len(tickerFilter) == 0 {
		return c.JSON(http.StatusBadRequest, IngestResponse{
			Success: false,
			Message: "No banks in database. Run /admin/ingest/banks first.",
		})
	}

	freqParam := c.QueryParam("freq")
	if freqParam == "" {
		freqParam = "Q,Y"
	}
	freqs := strings.Split(freqParam, ",")

	fullFetch := c.QueryParam("full") == "true"

	log.Printf("Starting financials ingestion (tickers: %d, freqs: %v, full: %v)...", len(tickerFilter), freqs, fullFetch)

	totalCount := 0

	for _, freq := range freqs {
		freq = strings.TrimSpace(freq)
		if freq == "" {
			continue
		}

		// Determine since date for incremental fetch
		var since time.Time
		if !fullFetch {
			since, _ = h.repo.GetLastFinancialsUpdate(ctx)
			log.Printf("Incremental fetch for %s since %v", freq, since)
		}

		rows, err := h.client.FetchFinancials(ctx, tickerFilter, freq, since)
		if err != nil {
			log.Printf("Error fetching financials (%s): %v", freq, err)
			return c.JSON(http.StatusInternalServerError, IngestResponse{
				Success: false,
				Message: fmt.Sprintf("Failed to fetch financials (%s): %v", freq, err),
			})
		}

		log.Printf("Fetched %d rows for frequency %s", len(rows), freq)

		count, err := h.repo.UpsertBankMetrics(ctx, rows)
		if err != nil {
			log.Printf("Error upserting metrics (%s): %v", freq, err)
			return c.JSON(http.StatusInternalServerError, IngestResponse{
				Success: false,
				Message: fmt.Sprintf("Failed to upsert metrics (%s): %v", freq, err),
			})
		}

		totalCount += count
		log.Printf("Upserted %d metrics for frequency %s", count, freq)
	}

	elapsed := time.Since(start)
	log.Printf("Financials ingestion complete: %d metrics in %v", totalCount, elapsed)

	return c.JSON(http.StatusOK, IngestResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully ingested %d bank metrics", totalCount),
		Count:   totalCount,
		Elapsed: elapsed.String(),
	})
}

// IngestStatus handles GET /admin/ingest/status
// Returns current row counts and the last upstream update.
func (h *IngestHandler) IngestStatus(c echo.Context) error {
	ctx := c.Request().Context()

	bankCount, _ := h.repo.GetBankCount(ctx)
	metricCount, _ := h.repo.GetMetricCount(ctx)
	rowCount, _ := h.repo.GetDecompositionCount(ctx)

	lastUpdate, _ := h.repo.GetLastFinancialsUpdate(ctx)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"banks":               bankCount,
		"metrics":             metricCount,
		"decomposition_rows":  rowCount,
		"last_metrics_update": lastUpdate.Format("2006-01-02"),
	})
}

func splitTickers(param string) []string {
	parts := strings.Split(param, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
