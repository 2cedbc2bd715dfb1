package marketdata

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/tax-aware-backtest/internal/metrics"
)

// Ingestor refreshes the on-disk snapshot files the backtest replays from.
type Ingestor struct {
	client  *SnapshotClient
	outDir  string
	tickers []string
	logger  *logrus.Logger
}

// NewIngestor creates an ingestor writing snapshots for the given universe.
func NewIngestor(client *SnapshotClient, outDir string, tickers []string, logger *logrus.Logger) *Ingestor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Ingestor{client: client, outDir: outDir, tickers: tickers, logger: logger}
}

// Refresh fetches bars for the universe over [from, to] plus the ranking
// snapshot at to, and rewrites bars.csv and rankings.json in the output
// directory.
func (i *Ingestor) Refresh(ctx context.Context, from, to time.Time) error {
	if err := os.MkdirAll(i.outDir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	var allBars []DailyBar
	for _, ticker := range i.tickers {
		bars, err := i.client.FetchBars(ctx, ticker, from, to)
		if err != nil {
			metrics.SnapshotFetchesTotal.WithLabelValues("error").Inc()
			return err
		}
		metrics.SnapshotFetchesTotal.WithLabelValues("ok").Inc()
		allBars = append(allBars, bars...)
	}
	if err := WriteBarsCSV(filepath.Join(i.outDir, "bars.csv"), allBars); err != nil {
		return err
	}

	ranking, err := i.client.FetchRanking(ctx, to)
	if err != nil {
		metrics.SnapshotFetchesTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.SnapshotFetchesTotal.WithLabelValues("ok").Inc()

	if err := appendRankingJSON(filepath.Join(i.outDir, "rankings.json"), ranking); err != nil {
		return err
	}

	i.logger.WithFields(logrus.Fields{
		"tickers": len(i.tickers),
		"bars":    len(allBars),
		"as_of":   to.Format("2006-01-02"),
	}).Info("Snapshot refresh complete")
	return nil
}

// WriteBarsCSV writes bars in the loader's CSV format.
func WriteBarsCSV(path string, bars []DailyBar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating bars file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ticker", "date", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Ticker,
			b.Date.Format("2006-01-02"),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// appendRankingJSON merges the new ranking into the rankings file,
// replacing any existing entry for the same date.
func appendRankingJSON(path string, ranking Ranking) error {
	var rankings []Ranking
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &rankings); err != nil {
			return fmt.Errorf("parsing existing rankings: %w", err)
		}
	}

	merged := make([]Ranking, 0, len(rankings)+1)
	for _, r := range rankings {
		if !r.Date.Equal(ranking.Date) {
			merged = append(merged, r)
		}
	}
	merged = append(merged, ranking)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding rankings: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
