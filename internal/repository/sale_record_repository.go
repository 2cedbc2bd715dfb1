package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yourusername/tax-aware-backtest/internal/database"
	"github.com/yourusername/tax-aware-backtest/internal/models"
)

const saleRecordColumns = `
	id, run_id, ticker, shares, sale_price, sale_date, proceeds, cost_basis,
	short_term_gain, long_term_gain, short_term_tax, long_term_tax, total_tax, method`

// PostgresSaleRecordRepository implements SaleRecordRepository for PostgreSQL
type PostgresSaleRecordRepository struct {
	db *database.DB
}

// NewPostgresSaleRecordRepository creates a new sale record repository
func NewPostgresSaleRecordRepository(db *database.DB) SaleRecordRepository {
	return &PostgresSaleRecordRepository{db: db}
}

// SaveAll inserts the realized sale history of a run
func (r *PostgresSaleRecordRepository) SaveAll(ctx context.Context, runID uuid.UUID, sales []models.SaleRecord) error {
	query := `
		INSERT INTO sale_records (` + saleRecordColumns + `
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`
	for _, s := range sales {
		if err := r.db.Exec(ctx, query,
			s.ID, runID, s.Ticker, s.Shares, s.SalePrice, s.SaleDate, s.Proceeds, s.CostBasis,
			s.ShortTermGain, s.LongTermGain, s.ShortTermTax, s.LongTermTax, s.TotalTax, string(s.Method),
		); err != nil {
			return fmt.Errorf("failed to save sale record for %s: %w", s.Ticker, err)
		}
	}
	return nil
}

// GetByRunID retrieves the sale history of a run in sale-date order
func (r *PostgresSaleRecordRepository) GetByRunID(ctx context.Context, runID uuid.UUID) ([]models.SaleRecord, error) {
	query := `
		SELECT id, ticker, shares, sale_price, sale_date, proceeds, cost_basis,
			short_term_gain, long_term_gain, short_term_tax, long_term_tax, total_tax, method
		FROM sale_records WHERE run_id = $1 ORDER BY sale_date, ticker
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale records: %w", err)
	}
	defer rows.Close()

	var sales []models.SaleRecord
	for rows.Next() {
		var s models.SaleRecord
		var method string
		if err := rows.Scan(
			&s.ID, &s.Ticker, &s.Shares, &s.SalePrice, &s.SaleDate, &s.Proceeds, &s.CostBasis,
			&s.ShortTermGain, &s.LongTermGain, &s.ShortTermTax, &s.LongTermTax, &s.TotalTax, &method,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sale record: %w", err)
		}
		s.Method = models.LotSelectionMethod(method)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}
