package marketdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReadBarsCSV(t *testing.T) {
	input := strings.Join([]string{
		"ticker,date,close,volume",
		"AAPL,2020-01-02,100.5,2500000",
		"MSFT,2020-01-02,200.25,1800000",
	}, "\n")

	bars, err := ReadBarsCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadBarsCSV failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Ticker != "AAPL" || bars[0].Close != 100.5 || bars[0].Volume != 2500000 {
		t.Errorf("unexpected first bar %+v", bars[0])
	}
	if !bars[1].Date.Equal(time.Date(2020, time.January, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", bars[1].Date)
	}
}

func TestReadBarsCSVBadRow(t *testing.T) {
	input := "ticker,date,close,volume\nAAPL,not-a-date,100,1\n"
	if _, err := ReadBarsCSV(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for malformed date")
	}

	input = "ticker,date,close,volume\nAAPL,2020-01-02,abc,1\n"
	if _, err := ReadBarsCSV(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for malformed close")
	}
}

func TestLoadStoreFromDisk(t *testing.T) {
	dir := t.TempDir()

	barsPath := filepath.Join(dir, "bars.csv")
	barsCSV := "ticker,date,close,volume\nAAPL,2020-01-02,100,1000000\nAAPL,2020-01-03,101,1100000\n"
	if err := os.WriteFile(barsPath, []byte(barsCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	rankingsPath := filepath.Join(dir, "rankings.json")
	rankingsJSON := `[{"date":"2020-01-02T00:00:00Z","candidates":[{"ticker":"AAPL","sector":"Information Technology"}]}]`
	if err := os.WriteFile(rankingsPath, []byte(rankingsJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := LoadStore(barsPath, rankingsPath)
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}

	price, ok := store.PriceAt("AAPL", time.Date(2020, time.January, 3, 0, 0, 0, 0, time.UTC))
	if !ok || price != 101 {
		t.Errorf("expected price 101, got %v ok=%v", price, ok)
	}
	candidates := store.CandidatesAt(time.Date(2020, time.January, 2, 0, 0, 0, 0, time.UTC))
	if len(candidates) != 1 || candidates[0].Ticker != "AAPL" {
		t.Errorf("rankings not loaded: %v", candidates)
	}
}

func TestLoadStoreMissingFile(t *testing.T) {
	if _, err := LoadStore(filepath.Join(t.TempDir(), "nope.csv"), ""); err == nil {
		t.Fatal("expected error for missing bars file")
	}
}
