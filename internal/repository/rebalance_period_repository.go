package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/yourusername/tax-aware-backtest/internal/database"
	"github.com/yourusername/tax-aware-backtest/internal/models"
)

// PostgresRebalancePeriodRepository implements RebalancePeriodRepository
// for PostgreSQL. Portfolio, trades and daily returns are stored as JSONB
// payloads; the scalar columns carry what dashboards query on.
type PostgresRebalancePeriodRepository struct {
	db *database.DB
}

// NewPostgresRebalancePeriodRepository creates a new rebalance period repository
func NewPostgresRebalancePeriodRepository(db *database.DB) RebalancePeriodRepository {
	return &PostgresRebalancePeriodRepository{db: db}
}

// SaveAll inserts every period of a run in order
func (r *PostgresRebalancePeriodRepository) SaveAll(ctx context.Context, runID uuid.UUID, periods []models.RebalancePeriod) error {
	query := `
		INSERT INTO rebalance_periods (
			run_id, seq, start_date, end_date, realized_return,
			transaction_cost, tax_paid, selection, selection_reason, detail
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`
	for i, p := range periods {
		detail, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode period %d: %w", i, err)
		}
		if err := r.db.Exec(ctx, query,
			runID, i, p.Start, p.End, p.RealizedReturn,
			p.TransactionCost, p.TaxPaid, string(p.Selection), p.SelectionReason, detail,
		); err != nil {
			return fmt.Errorf("failed to save period %d: %w", i, err)
		}
	}
	return nil
}

// GetByRunID retrieves the periods of a run in sequence order
func (r *PostgresRebalancePeriodRepository) GetByRunID(ctx context.Context, runID uuid.UUID) ([]models.RebalancePeriod, error) {
	query := `SELECT detail FROM rebalance_periods WHERE run_id = $1 ORDER BY seq`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rebalance periods: %w", err)
	}
	defer rows.Close()

	var periods []models.RebalancePeriod
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("failed to scan rebalance period: %w", err)
		}
		var p models.RebalancePeriod
		if err := json.Unmarshal(detail, &p); err != nil {
			return nil, fmt.Errorf("failed to decode rebalance period: %w", err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}
