// Package repository persists backtest results to PostgreSQL. Persistence
// is optional; the engine never depends on it.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yourusername/tax-aware-backtest/internal/database"
	"github.com/yourusername/tax-aware-backtest/internal/models"
)

// BacktestRunRepository stores run summary rows.
type BacktestRunRepository interface {
	Save(ctx context.Context, run *models.BacktestRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error)
}

// RebalancePeriodRepository stores the per-period rows of a run.
type RebalancePeriodRepository interface {
	SaveAll(ctx context.Context, runID uuid.UUID, periods []models.RebalancePeriod) error
	GetByRunID(ctx context.Context, runID uuid.UUID) ([]models.RebalancePeriod, error)
}

// SaleRecordRepository stores the realized sale history of a run.
type SaleRecordRepository interface {
	SaveAll(ctx context.Context, runID uuid.UUID, sales []models.SaleRecord) error
	GetByRunID(ctx context.Context, runID uuid.UUID) ([]models.SaleRecord, error)
}

// Repositories holds all repository implementations
type Repositories struct {
	Run    BacktestRunRepository
	Period RebalancePeriodRepository
	Sale   SaleRecordRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &Repositories{
		Run:    NewPostgresBacktestRunRepository(db),
		Period: NewPostgresRebalancePeriodRepository(db),
		Sale:   NewPostgresSaleRecordRepository(db),
	}, nil
}
