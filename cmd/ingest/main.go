// Package main provides the entry point for the market data ingestion tool.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/tax-aware-backtest/internal/config"
	"github.com/yourusername/tax-aware-backtest/internal/logger"
	"github.com/yourusername/tax-aware-backtest/internal/marketdata"
	"github.com/yourusername/tax-aware-backtest/internal/scheduler"
)

var (
	configFile   string
	tickersFlag  string
	lookbackDays int
	cronExpr     string

	cfg      *config.Config
	appLog   *logrus.Logger
	ingestor *marketdata.Ingestor
	client   *marketdata.SnapshotClient
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&tickersFlag, "tickers", "", "Comma-separated ticker universe to ingest")
	rootCmd.PersistentFlags().IntVar(&lookbackDays, "lookback-days", 30, "Trailing window of bars to fetch")

	scheduleCmd.Flags().StringVar(&cronExpr, "cron", "0 22 * * 1-5", "Cron schedule for snapshot refresh (UTC)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch market data snapshots for the backtesting engine",
	Long: `Pulls EOD bar history and candidate rankings from the market data API
and writes the snapshot files the backtest replays from.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run a one-shot snapshot refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		to := time.Now().UTC()
		from := to.AddDate(0, 0, -lookbackDays)
		if err := ingestor.Refresh(ctx, from, to); err != nil {
			return fmt.Errorf("snapshot refresh failed: %w", err)
		}
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Refresh snapshots continuously on a cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		sched := scheduler.NewScheduler(ingestor, appLog)
		lookback := time.Duration(lookbackDays) * 24 * time.Hour
		if err := sched.ScheduleSnapshotRefresh(cronExpr, lookback); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		sig := <-stop
		appLog.WithField("signal", sig.String()).Info("Shutting down")
		return sched.Stop()
	},
}

func main() {
	defer func() {
		if client != nil {
			client.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup() error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(context.Background(), cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	if cfg.MarketData.APIBaseURL == "" {
		return fmt.Errorf("market_data.api_base_url is required for ingestion")
	}
	tickers := splitTickers(tickersFlag)
	if len(tickers) == 0 {
		return fmt.Errorf("--tickers is required")
	}
	outDir := snapshotDir(cfg)

	clientCfg := marketdata.DefaultClientConfig()
	clientCfg.BaseURL = cfg.MarketData.APIBaseURL
	clientCfg.APIKey = cfg.MarketData.APIKey
	if cfg.MarketData.RateLimit > 0 {
		clientCfg.RateLimit = cfg.MarketData.RateLimit
	}
	if cfg.MarketData.CacheTTLSeconds > 0 {
		clientCfg.CacheTTL = time.Duration(cfg.MarketData.CacheTTLSeconds) * time.Second
	}

	client = marketdata.NewSnapshotClient(clientCfg, appLog)
	ingestor = marketdata.NewIngestor(client, outDir, tickers, appLog)

	appLog.WithFields(logrus.Fields{
		"tickers": len(tickers),
		"out_dir": outDir,
	}).Info("Ingestion configured")
	return nil
}

func splitTickers(list string) []string {
	var tickers []string
	for _, t := range strings.Split(list, ",") {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			tickers = append(tickers, strings.ToUpper(trimmed))
		}
	}
	return tickers
}

// snapshotDir derives the ingestion output directory from the configured
// bars path, falling back to ./snapshots.
func snapshotDir(cfg *config.Config) string {
	if cfg.MarketData.BarsPath != "" {
		if dir := filepath.Dir(cfg.MarketData.BarsPath); dir != "." {
			return dir
		}
	}
	return "snapshots"
}
