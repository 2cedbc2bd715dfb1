package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats a run summary for terminal output.
func GenerateConsoleReport(result *Result) string {
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Window: %s to %s (%s, %d positions)\n",
		result.Run.StartDate.Format("2006-01-02"),
		result.Run.EndDate.Format("2006-01-02"),
		result.Run.Frequency,
		result.Run.PortfolioSize))
	builder.WriteString(fmt.Sprintf("Final Capital: %s (from %s)\n",
		result.Run.FinalCapital.StringFixed(2), result.Run.InitialCapital.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("After-Tax Return: %.2f%%\n", result.Performance.TotalReturn*100))
	builder.WriteString(fmt.Sprintf("Pre-Tax Return: %.2f%%\n", result.Performance.PreTaxReturn*100))
	builder.WriteString(fmt.Sprintf("Tax Drag: %.2f%%\n", result.Performance.TaxDrag*100))
	builder.WriteString(fmt.Sprintf("Annualized Return: %.2f%%\n", result.Performance.AnnualizedReturn*100))
	builder.WriteString(fmt.Sprintf("Volatility: %.2f%%\n", result.Performance.Volatility*100))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %.2f\n", result.Performance.SharpeRatio))
	builder.WriteString(fmt.Sprintf("Sortino Ratio: %.2f\n", result.Performance.SortinoRatio))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", result.Performance.MaxDrawdown*100))
	builder.WriteString(fmt.Sprintf("Win Rate: %.2f%% (%d of %d periods)\n",
		result.Performance.WinRate*100, result.Performance.WinningPeriods, result.Performance.TotalPeriods))
	builder.WriteString(fmt.Sprintf("Tax Paid: %s\n", result.Run.TaxPaid.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Transaction Cost: %s\n", result.Run.TotalCost.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Sales Recorded: %d\n", len(result.Sales)))
	if len(result.Warnings) > 0 {
		builder.WriteString(fmt.Sprintf("Warnings (%d):\n", len(result.Warnings)))
		for _, w := range result.Warnings {
			builder.WriteString("  - " + w + "\n")
		}
	}
	return builder.String()
}

// ExportJSON writes the full result to a JSON file.
func ExportJSON(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// ExportPeriodsCSV writes one row per rebalance period for spreadsheets.
func ExportPeriodsCSV(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"start", "end", "positions", "trades", "realized_return",
		"transaction_cost", "tax_paid", "selection", "warnings"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, p := range result.Periods {
		row := []string{
			p.Start.Format("2006-01-02"),
			p.End.Format("2006-01-02"),
			fmt.Sprintf("%d", len(p.Portfolio)),
			fmt.Sprintf("%d", len(p.Trades)),
			fmt.Sprintf("%.6f", p.RealizedReturn),
			p.TransactionCost.StringFixed(2),
			p.TaxPaid.StringFixed(2),
			string(p.Selection),
			strings.Join(p.Warnings, "; "),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// ExportSalesCSV writes the realized sale history.
func ExportSalesCSV(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"sale_date", "ticker", "shares", "sale_price", "proceeds",
		"cost_basis", "short_term_gain", "long_term_gain", "total_tax", "method"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, s := range result.Sales {
		row := []string{
			s.SaleDate.Format("2006-01-02"),
			s.Ticker,
			s.Shares.String(),
			s.SalePrice.StringFixed(4),
			s.Proceeds.StringFixed(2),
			s.CostBasis.StringFixed(2),
			s.ShortTermGain.StringFixed(2),
			s.LongTermGain.StringFixed(2),
			s.TotalTax.StringFixed(2),
			string(s.Method),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
