package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mauv0809/earnings-quality/internal/engine"
	"github.com/mauv0809/earnings-quality/internal/ingest"
	"github.com/mauv0809/earnings-quality/internal/models"
	"github.com/shopspring/decimal"
)

// Repository handles database operations for bank metrics and decomposition
// output.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertBanks inserts or updates the bank universe.
// Returns the number of rows affected.
func (r *Repository) UpsertBanks(ctx context.Context, banks []ingest.BankRow) (int, error) {
	if len(banks) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, b := range banks {
		batch.Queue(`
			INSERT INTO banks (ticker, name, sector, tier, active, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (ticker) DO UPDATE SET
				name = EXCLUDED.name,
				sector = EXCLUDED.sector,
				tier = EXCLUDED.tier,
				active = EXCLUDED.active,
				updated_at = NOW()
		`, b.Ticker, b.Name, b.Sector, b.Tier, !b.IsDelisted)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	count := 0
	for range banks {
		_, err := br.Exec()
		if err != nil {
			return count, fmt.Errorf("upserting bank: %w", err)
		}
		count++
	}

	return count, nil
}

// UpsertBankMetrics inserts or updates statement rows from the financials
// API, keyed by (ticker, freq, period).
func (r *Repository) UpsertBankMetrics(ctx context.Context, rows []ingest.FinancialRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO bank_metrics (
				ticker, freq, period,
				toi, pbt, nii, fee_income,
				opex, provisions, loans, nim,
				last_updated, updated_at
			) VALUES (
				$1, $2, $3,
				$4, $5, $6, $7,
				$8, $9, $10, $11,
				$12, NOW()
			)
			ON CONFLICT (ticker, freq, period) DO UPDATE SET
				toi = EXCLUDED.toi,
				pbt = EXCLUDED.pbt,
				nii = EXCLUDED.nii,
				fee_income = EXCLUDED.fee_income,
				opex = EXCLUDED.opex,
				provisions = EXCLUDED.provisions,
				loans = EXCLUDED.loans,
				nim = EXCLUDED.nim,
				last_updated = EXCLUDED.last_updated,
				updated_at = NOW()
		`,
			row.Ticker, row.Freq, row.Period,
			decimalPtr(row.TOI), decimalPtr(row.PBT), decimalPtr(row.NII), decimalPtr(row.FeeIncome),
			decimalPtr(row.OPEX), decimalPtr(row.Provisions), decimalPtr(row.Loans), decimalPtr(row.NIM),
			row.LastUpdated,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	count := 0
	for range rows {
		_, err := br.Exec()
		if err != nil {
			return count, fmt.Errorf("upserting bank metric: %w", err)
		}
		count++
	}

	return count, nil
}

// FetchMetricSeries returns one bank's stored metric rows for a frequency,
// ordered by period label (the labels are fixed-width, so lexical order is
// chronological order).
func (r *Repository) FetchMetricSeries(ctx context.Context, ticker, freq string) ([]models.BankMetric, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ticker, freq, period,
			toi, pbt, nii, fee_income, opex, provisions, loans, nim,
			last_updated, created_at, updated_at
		FROM bank_metrics
		WHERE ticker = $1 AND freq = $2
		ORDER BY period
	`, ticker, freq)
	if err != nil {
		return nil, fmt.Errorf("querying metric series: %w", err)
	}
	defer rows.Close()

	var out []models.BankMetric
	for rows.Next() {
		var m models.BankMetric
		if err := rows.Scan(
			&m.ID, &m.Ticker, &m.Freq, &m.Period,
			&m.TOI, &m.PBT, &m.NII, &m.FeeIncome, &m.OPEX, &m.Provisions, &m.Loans, &m.NIM,
			&m.LastUpdated, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning metric row: %w", err)
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

const upsertDecompositionSQL = `
	INSERT INTO decomposition_rows (
		ticker, horizon, period,
		cur_toi, cur_pbt, cur_nii, cur_fee_income, cur_opex, cur_provisions,
		cur_loans, cur_nim, cur_core_revenue, cur_core_profit, cur_non_recurring,
		prior_toi, prior_pbt, prior_nii, prior_fee_income, prior_opex, prior_provisions,
		prior_loans, prior_nim, prior_core_revenue, prior_core_profit, prior_non_recurring,
		chg_toi, chg_pbt, chg_nii, chg_fee_income, chg_opex, chg_provisions,
		chg_loans, chg_nim, chg_core_revenue, chg_core_profit, chg_non_recurring,
		growth_pct,
		score_top_line, score_cost, score_non_recurring, score_nii, score_fee,
		score_opex, score_provisions, score_loan, score_margin,
		impact_top_line, impact_cost, impact_non_recurring, impact_nii, impact_fee,
		impact_opex, impact_provisions, impact_loan, impact_margin,
		impact_gap, small_denom, capped, inconsistent, updated_at
	) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7, $8, $9,
		$10, $11, $12, $13, $14,
		$15, $16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25,
		$26, $27, $28, $29, $30, $31,
		$32, $33, $34, $35, $36,
		$37,
		$38, $39, $40, $41, $42,
		$43, $44, $45, $46,
		$47, $48, $49, $50, $51,
		$52, $53, $54, $55,
		$56, $57, $58, $59, NOW()
	)
	ON CONFLICT (ticker, horizon, period) DO UPDATE SET
		cur_toi = EXCLUDED.cur_toi,
		cur_pbt = EXCLUDED.cur_pbt,
		cur_nii = EXCLUDED.cur_nii,
		cur_fee_income = EXCLUDED.cur_fee_income,
		cur_opex = EXCLUDED.cur_opex,
		cur_provisions = EXCLUDED.cur_provisions,
		cur_loans = EXCLUDED.cur_loans,
		cur_nim = EXCLUDED.cur_nim,
		cur_core_revenue = EXCLUDED.cur_core_revenue,
		cur_core_profit = EXCLUDED.cur_core_profit,
		cur_non_recurring = EXCLUDED.cur_non_recurring,
		prior_toi = EXCLUDED.prior_toi,
		prior_pbt = EXCLUDED.prior_pbt,
		prior_nii = EXCLUDED.prior_nii,
		prior_fee_income = EXCLUDED.prior_fee_income,
		prior_opex = EXCLUDED.prior_opex,
		prior_provisions = EXCLUDED.prior_provisions,
		prior_loans = EXCLUDED.prior_loans,
		prior_nim = EXCLUDED.prior_nim,
		prior_core_revenue = EXCLUDED.prior_core_revenue,
		prior_core_profit = EXCLUDED.prior_core_profit,
		prior_non_recurring = EXCLUDED.prior_non_recurring,
		chg_toi = EXCLUDED.chg_toi,
		chg_pbt = EXCLUDED.chg_pbt,
		chg_nii = EXCLUDED.chg_nii,
		chg_fee_income = EXCLUDED.chg_fee_income,
		chg_opex = EXCLUDED.chg_opex,
		chg_provisions = EXCLUDED.chg_provisions,
		chg_loans = EXCLUDED.chg_loans,
		chg_nim = EXCLUDED.chg_nim,
		chg_core_revenue = EXCLUDED.chg_core_revenue,
		chg_core_profit = EXCLUDED.chg_core_profit,
		chg_non_recurring = EXCLUDED.chg_non_recurring,
		growth_pct = EXCLUDED.growth_pct,
		score_top_line = EXCLUDED.score_top_line,
		score_cost = EXCLUDED.score_cost,
		score_non_recurring = EXCLUDED.score_non_recurring,
		score_nii = EXCLUDED.score_nii,
		score_fee = EXCLUDED.score_fee,
		score_opex = EXCLUDED.score_opex,
		score_provisions = EXCLUDED.score_provisions,
		score_loan = EXCLUDED.score_loan,
		score_margin = EXCLUDED.score_margin,
		impact_top_line = EXCLUDED.impact_top_line,
		impact_cost = EXCLUDED.impact_cost,
		impact_non_recurring = EXCLUDED.impact_non_recurring,
		impact_nii = EXCLUDED.impact_nii,
		impact_fee = EXCLUDED.impact_fee,
		impact_opex = EXCLUDED.impact_opex,
		impact_provisions = EXCLUDED.impact_provisions,
		impact_loan = EXCLUDED.impact_loan,
		impact_margin = EXCLUDED.impact_margin,
		impact_gap = EXCLUDED.impact_gap,
		small_denom = EXCLUDED.small_denom,
		capped = EXCLUDED.capped,
		inconsistent = EXCLUDED.inconsistent,
		updated_at = NOW()
`

// UpsertDecompositionRows writes engine output into the keyed store,
// replacing any previous row for the same (ticker, horizon, period).
func (r *Repository) UpsertDecompositionRows(ctx context.Context, rows []engine.DecompositionRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		args := make([]interface{}, 0, 59)
		args = append(args, row.Ticker, string(row.Horizon), row.Period.String())
		args = append(args, metricArgs(&row.Current)...)
		args = append(args, metricArgs(row.Prior)...)
		args = append(args, metricArgs(row.Change)...)
		args = append(args, floatArg(row.GrowthPct))
		args = append(args, scoreArgs(row.Scores)...)
		args = append(args, scoreArgs(row.Impacts)...)
		args = append(args, floatArg(row.ImpactGap), row.SmallDenom, row.Capped, row.Inconsistent)
		batch.Queue(upsertDecompositionSQL, args...)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	count := 0
	for range rows {
		_, err := br.Exec()
		if err != nil {
			return count, fmt.Errorf("upserting decomposition row: %w", err)
		}
		count++
	}

	return count, nil
}

// ListDecompositionRows returns stored rows, optionally filtered by ticker,
// horizon and period. Empty filter values match everything.
func (r *Repository) ListDecompositionRows(ctx context.Context, ticker, horizon, period string) ([]models.DecompositionRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ticker, horizon, period,
			cur_toi, cur_pbt, cur_nii, cur_fee_income, cur_opex, cur_provisions,
			cur_loans, cur_nim, cur_core_revenue, cur_core_profit, cur_non_recurring,
			prior_toi, prior_pbt, prior_nii, prior_fee_income, prior_opex, prior_provisions,
			prior_loans, prior_nim, prior_core_revenue, prior_core_profit, prior_non_recurring,
			chg_toi, chg_pbt, chg_nii, chg_fee_income, chg_opex, chg_provisions,
			chg_loans, chg_nim, chg_core_revenue, chg_core_profit, chg_non_recurring,
			growth_pct,
			score_top_line, score_cost, score_non_recurring, score_nii, score_fee,
			score_opex, score_provisions, score_loan, score_margin,
			impact_top_line, impact_cost, impact_non_recurring, impact_nii, impact_fee,
			impact_opex, impact_provisions, impact_loan, impact_margin,
			impact_gap, small_denom, capped, inconsistent, created_at, updated_at
		FROM decomposition_rows
		WHERE ($1 = '' OR ticker = $1)
			AND ($2 = '' OR horizon = $2)
			AND ($3 = '' OR period = $3)
		ORDER BY ticker, horizon, period
	`, ticker, horizon, period)
	if err != nil {
		return nil, fmt.Errorf("querying decomposition rows: %w", err)
	}
	defer rows.Close()

	var out []models.DecompositionRow
	for rows.Next() {
		var d models.DecompositionRow
		if err := rows.Scan(
			&d.ID, &d.Ticker, &d.Horizon, &d.Period,
			&d.Current.TOI, &d.Current.PBT, &d.Current.NII, &d.Current.FeeIncome, &d.Current.OPEX, &d.Current.Provisions,
			&d.Current.Loans, &d.Current.NIM, &d.Current.CoreRevenue, &d.Current.CoreProfit, &d.Current.NonRecurring,
			&d.Prior.TOI, &d.Prior.PBT, &d.Prior.NII, &d.Prior.FeeIncome, &d.Prior.OPEX, &d.Prior.Provisions,
			&d.Prior.Loans, &d.Prior.NIM, &d.Prior.CoreRevenue, &d.Prior.CoreProfit, &d.Prior.NonRecurring,
			&d.Change.TOI, &d.Change.PBT, &d.Change.NII, &d.Change.FeeIncome, &d.Change.OPEX, &d.Change.Provisions,
			&d.Change.Loans, &d.Change.NIM, &d.Change.CoreRevenue, &d.Change.CoreProfit, &d.Change.NonRecurring,
			&d.GrowthPct,
			&d.Scores.TopLine, &d.Scores.Cost, &d.Scores.NonRecurring, &d.Scores.NII, &d.Scores.Fee,
			&d.Scores.OPEX, &d.Scores.Provisions, &d.Scores.Loan, &d.Scores.Margin,
			&d.Impacts.TopLine, &d.Impacts.Cost, &d.Impacts.NonRecurring, &d.Impacts.NII, &d.Impacts.Fee,
			&d.Impacts.OPEX, &d.Impacts.Provisions, &d.Impacts.Loan, &d.Impacts.Margin,
			&d.ImpactGap, &d.SmallDenom, &d.Capped, &d.Inconsistent, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning decomposition row: %w", err)
		}
		out = append(out, d)
	}

	return out, rows.Err()
}

// GetLastFinancialsUpdate returns the most recent upstream lastupdated
// timestamp for bank_metrics.
func (r *Repository) GetLastFinancialsUpdate(ctx context.Context) (time.Time, error) {
	var lastUpdate time.Time
	err := r.pool.QueryRow(ctx,
		"SELECT COALESCE(MAX(last_updated), '1970-01-01'::timestamp) FROM bank_metrics",
	).Scan(&lastUpdate)
	if err != nil {
		return time.Time{}, fmt.Errorf("querying last update: %w", err)
	}
	return lastUpdate, nil
}

// GetBankCount returns the number of banks in the database.
func (r *Repository) GetBankCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM banks").Scan(&count)
	return count, err
}

// GetMetricCount returns the number of stored statement rows.
func (r *Repository) GetMetricCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM bank_metrics").Scan(&count)
	return count, err
}

// GetDecompositionCount returns the number of stored decomposition rows.
func (r *Repository) GetDecompositionCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM decomposition_rows").Scan(&count)
	return count, err
}

// GetActiveTickers returns all active bank tickers.
func (r *Repository) GetActiveTickers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT ticker FROM banks WHERE active = true ORDER BY ticker")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, err
		}
		tickers = append(tickers, ticker)
	}

	return tickers, rows.Err()
}

// decimalPtr converts a *decimal.Decimal to interface{} for database insertion.
func decimalPtr(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return *d
}

// floatArg converts an optional engine value to a database argument.
func floatArg(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return decimal.NewFromFloat(*f)
}

// metricArgs flattens a metric vector into its eleven column values; a nil
// vector yields eleven NULLs.
func metricArgs(m *engine.Metrics) []interface{} {
	if m == nil {
		return make([]interface{}, 11)
	}
	vals := []float64{
		m.TOI, m.PBT, m.NII, m.FeeIncome, m.OPEX, m.Provisions,
		m.Loans, m.NIM, m.CoreRevenue, m.CoreProfit, m.NonRecurring,
	}
	args := make([]interface{}, len(vals))
	for i, v := range vals {
		args[i] = decimal.NewFromFloat(v)
	}
	return args
}

// scoreArgs flattens a score vector into its nine column values; a nil
// vector yields nine NULLs.
func scoreArgs(s *engine.Scores) []interface{} {
	if s == nil {
		return make([]interface{}, 9)
	}
	vals := []float64{
		s.TopLine, s.Cost, s.NonRecurring, s.NII, s.Fee,
		s.OPEX, s.Provisions, s.Loan, s.Margin,
	}
	args := make([]interface{}, len(vals))
	for i, v := range vals {
		args[i] = decimal.NewFromFloat(v)
	}
	return args
}
