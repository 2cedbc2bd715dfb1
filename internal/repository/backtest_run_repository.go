package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yourusername/tax-aware-backtest/internal/database"
	"github.com/yourusername/tax-aware-backtest/internal/models"
)

const backtestRunColumns = `
	id, run_date, start_date, end_date, frequency, portfolio_size,
	initial_capital, final_capital, total_return, after_tax_return,
	sharpe_ratio, max_drawdown, tax_paid, total_cost, periods, created_at`

// PostgresBacktestRunRepository implements BacktestRunRepository for PostgreSQL
type PostgresBacktestRunRepository struct {
	db *database.DB
}

// NewPostgresBacktestRunRepository creates a new backtest run repository
func NewPostgresBacktestRunRepository(db *database.DB) BacktestRunRepository {
	return &PostgresBacktestRunRepository{db: db}
}

// Save inserts a run summary row
func (r *PostgresBacktestRunRepository) Save(ctx context.Context, run *models.BacktestRun) error {
	query := `
		INSERT INTO backtest_runs (` + backtestRunColumns + `
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`
	err := r.db.Exec(ctx, query,
		run.ID, run.RunDate, run.StartDate, run.EndDate, run.Frequency, run.PortfolioSize,
		run.InitialCapital, run.FinalCapital, run.TotalReturn, run.AfterTaxReturn,
		run.SharpeRatio, run.MaxDrawdown, run.TaxPaid, run.TotalCost, run.Periods, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run summary by ID
func (r *PostgresBacktestRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + ` FROM backtest_runs WHERE id = $1`

	run := &models.BacktestRun{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.RunDate, &run.StartDate, &run.EndDate, &run.Frequency, &run.PortfolioSize,
		&run.InitialCapital, &run.FinalCapital, &run.TotalReturn, &run.AfterTaxReturn,
		&run.SharpeRatio, &run.MaxDrawdown, &run.TaxPaid, &run.TotalCost, &run.Periods, &run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest run %s: %w", id, err)
	}
	return run, nil
}

// GetLatest retrieves the most recent run summaries
func (r *PostgresBacktestRunRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + ` FROM backtest_runs ORDER BY run_date DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.BacktestRun
	for rows.Next() {
		run := &models.BacktestRun{}
		if err := rows.Scan(
			&run.ID, &run.RunDate, &run.StartDate, &run.EndDate, &run.Frequency, &run.PortfolioSize,
			&run.InitialCapital, &run.FinalCapital, &run.TotalReturn, &run.AfterTaxReturn,
			&run.SharpeRatio, &run.MaxDrawdown, &run.TaxPaid, &run.TotalCost, &run.Periods, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
