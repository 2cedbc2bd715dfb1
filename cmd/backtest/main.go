// Package main provides the entry point for the backtesting CLI tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/tax-aware-backtest/internal/backtest"
	"github.com/yourusername/tax-aware-backtest/internal/config"
	"github.com/yourusername/tax-aware-backtest/internal/database"
	"github.com/yourusername/tax-aware-backtest/internal/logger"
	"github.com/yourusername/tax-aware-backtest/internal/marketdata"
	"github.com/yourusername/tax-aware-backtest/internal/metrics"
	"github.com/yourusername/tax-aware-backtest/internal/models"
	"github.com/yourusername/tax-aware-backtest/internal/repository"
	"github.com/yourusername/tax-aware-backtest/internal/schedule"
	"github.com/yourusername/tax-aware-backtest/internal/taxledger"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		startDate  = flag.String("start-date", "", "Override start date (YYYY-MM-DD)")
		endDate    = flag.String("end-date", "", "Override end date (YYYY-MM-DD)")
		output     = flag.String("output", "", "Override output directory for result files")
		persist    = flag.Bool("persist", false, "Persist results to the configured database")
		sweep      = flag.Bool("sweep", false, "Run the tax-profile sweep instead of a single run")
	)
	flag.Parse()

	ctx := context.Background()
	cfg := loadConfigWithSecrets(ctx, *configPath)
	log := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	if *output != "" {
		cfg.Backtest.OutputPath = *output
	}

	runCfg := buildRunConfig(cfg, *startDate, *endDate, log)
	store := loadStore(cfg, log)
	startMetricsServer(cfg, log)

	if *sweep {
		runSweep(ctx, runCfg, store, log)
		return
	}
	runSingle(ctx, cfg, runCfg, store, *persist, log)
}

func loadConfigWithSecrets(ctx context.Context, path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			logrus.Fatal("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			logrus.Fatalf("Failed to load secrets: %v", err)
		}
	}
	return cfg
}

func buildRunConfig(cfg *config.Config, startOverride, endOverride string, log *logrus.Logger) backtest.RunConfig {
	start, end, err := cfg.Backtest.Dates()
	if err != nil {
		log.Fatalf("Invalid backtest window: %v", err)
	}
	if startOverride != "" {
		if start, err = time.Parse("2006-01-02", startOverride); err != nil {
			log.Fatalf("Invalid start date: %v", err)
		}
	}
	if endOverride != "" {
		if end, err = time.Parse("2006-01-02", endOverride); err != nil {
			log.Fatalf("Invalid end date: %v", err)
		}
	}

	frequency, err := schedule.ParseFrequency(cfg.Backtest.Frequency)
	if err != nil {
		log.Fatalf("Invalid frequency: %v", err)
	}
	lotMethod, err := models.ParseLotSelectionMethod(cfg.Tax.LotMethod)
	if err != nil {
		log.Fatalf("Invalid lot method: %v", err)
	}
	washRule, err := taxledger.ParseWashSaleRule(cfg.Tax.WashSaleRule)
	if err != nil {
		log.Fatalf("Invalid wash sale rule: %v", err)
	}

	runCfg := backtest.DefaultRunConfig()
	runCfg.StartDate = start
	runCfg.EndDate = end
	runCfg.Frequency = frequency
	runCfg.PortfolioSize = cfg.Backtest.PortfolioSize
	runCfg.InitialCapital = cfg.Backtest.InitialCapital
	runCfg.RiskFreeRate = cfg.Backtest.RiskFreeRate
	runCfg.LotMethod = lotMethod
	runCfg.TaxProfile = cfg.Tax.TaxProfile()
	runCfg.Constraints = cfg.Constraints.ConstraintSet()
	runCfg.HarvestEnabled = cfg.Tax.HarvestEnabled
	runCfg.HarvestThreshold = cfg.Tax.HarvestThreshold
	runCfg.WashRule = washRule
	runCfg.WashWindowDays = cfg.Tax.WashWindowDays
	runCfg.LiquidityLookbackDays = cfg.MarketData.LiquidityLookbackDays
	return runCfg
}

func loadStore(cfg *config.Config, log *logrus.Logger) *marketdata.Store {
	if cfg.MarketData.BarsPath == "" {
		log.Fatal("market_data.bars_path is required for a backtest run")
	}
	store, err := marketdata.LoadStore(cfg.MarketData.BarsPath, cfg.MarketData.RankingsPath)
	if err != nil {
		log.Fatalf("Failed to load market data snapshots: %v", err)
	}
	log.WithFields(logrus.Fields{
		"bars_path":     cfg.MarketData.BarsPath,
		"rankings_path": cfg.MarketData.RankingsPath,
		"tickers":       len(store.Tickers()),
	}).Info("Market data loaded")
	return store
}

func startMetricsServer(cfg *config.Config, log *logrus.Logger) {
	if !cfg.Metrics.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	go func() {
		log.WithField("addr", addr).Info("Metrics server listening")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()
}

func runSingle(ctx context.Context, cfg *config.Config, runCfg backtest.RunConfig, store *marketdata.Store, persist bool, log *logrus.Logger) {
	result := executeRun(ctx, runCfg, store, log)

	fmt.Print(backtest.GenerateConsoleReport(result))

	if outDir := cfg.Backtest.OutputPath; outDir != "" {
		exportResult(result, outDir, log)
	}

	if persist {
		if !cfg.Database.Configured() {
			log.Fatal("--persist requires database host and name in configuration")
		}
		persistResult(ctx, cfg, result, log)
	}
}

func executeRun(ctx context.Context, runCfg backtest.RunConfig, store *marketdata.Store, log *logrus.Logger) *backtest.Result {
	engine, err := backtest.NewEngine(runCfg, store, log)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	metrics.RunsStartedTotal.Inc()
	started := time.Now()
	result, err := engine.Run(ctx)
	if err != nil {
		metrics.RunsFailedTotal.Inc()
		log.Fatalf("Backtest failed: %v", err)
	}
	metrics.RunsCompletedTotal.Inc()
	metrics.RunDuration.Observe(time.Since(started).Seconds())
	metrics.LastRunFinalEquity.Set(result.Run.FinalCapital.InexactFloat64())
	metrics.LastRunTaxPaid.Set(result.Run.TaxPaid.InexactFloat64())
	metrics.LastRunMaxDrawdown.Set(result.Performance.MaxDrawdown)
	observeTrades(result)
	return result
}

func observeTrades(result *backtest.Result) {
	for _, p := range result.Periods {
		for _, t := range p.Trades {
			metrics.TradesExecutedTotal.WithLabelValues(string(t.Action)).Inc()
		}
		if p.Selection == models.SelectionDegraded {
			metrics.DegradedPeriodsTotal.Inc()
		}
	}
}

func exportResult(result *backtest.Result, outDir string, log *logrus.Logger) {
	exports := map[string]func(*backtest.Result, string) error{
		"result.json": backtest.ExportJSON,
		"periods.csv": backtest.ExportPeriodsCSV,
		"sales.csv":   backtest.ExportSalesCSV,
	}
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(outDir, name)
		if err := exports[name](result, path); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	log.WithField("dir", outDir).Info("Result files written")
}

func persistResult(ctx context.Context, cfg *config.Config, result *backtest.Result, log *logrus.Logger) {
	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	if err := repos.Run.Save(ctx, &result.Run); err != nil {
		log.Fatalf("Failed to persist run: %v", err)
	}
	if err := repos.Period.SaveAll(ctx, result.Run.ID, result.Periods); err != nil {
		log.Fatalf("Failed to persist periods: %v", err)
	}
	if err := repos.Sale.SaveAll(ctx, result.Run.ID, result.Sales); err != nil {
		log.Fatalf("Failed to persist sales: %v", err)
	}
	log.WithField("run_id", result.Run.ID).Info("Run persisted")
}

// sweepProfile is one leg of the tax-profile comparison.
type sweepProfile struct {
	Name    string
	Profile models.TaxProfile
}

func sweepProfiles(base models.TaxProfile) []sweepProfile {
	highState := base
	highState.StateRate = 0.133
	noState := base
	noState.StateRate = 0
	return []sweepProfile{
		{Name: "configured", Profile: base},
		{Name: "no_state", Profile: noState},
		{Name: "high_state", Profile: highState},
		{Name: "tax_exempt", Profile: models.TaxProfile{}},
	}
}

// runSweep runs the same window once per tax profile. Runs are independent
// (each engine owns its ledger) so they execute in parallel.
func runSweep(ctx context.Context, runCfg backtest.RunConfig, store *marketdata.Store, log *logrus.Logger) {
	profiles := sweepProfiles(runCfg.TaxProfile)
	results := make([]*backtest.Result, len(profiles))
	errs := make([]error, len(profiles))

	var wg sync.WaitGroup
	for i, sp := range profiles {
		wg.Add(1)
		go func(i int, sp sweepProfile) {
			defer wg.Done()
			cfg := runCfg
			cfg.TaxProfile = sp.Profile

			engine, err := backtest.NewEngine(cfg, store, log)
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = engine.Run(ctx)
		}(i, sp)
	}
	wg.Wait()

	fmt.Println("Tax Profile Sweep")
	fmt.Println("=================")
	for i, sp := range profiles {
		if errs[i] != nil {
			fmt.Printf("%-12s FAILED: %v\n", sp.Name, errs[i])
			continue
		}
		perf := results[i].Performance
		fmt.Printf("%-12s after-tax %7.2f%%  pre-tax %7.2f%%  drag %6.2f%%  tax paid %s\n",
			sp.Name,
			perf.TotalReturn*100,
			perf.PreTaxReturn*100,
			perf.TaxDrag*100,
			results[i].Run.TaxPaid.StringFixed(2))
	}
}
