package marketdata

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// LoadBarsCSV reads daily bars from a CSV file with a header row of
// ticker,date,close,volume (dates as YYYY-MM-DD).
func LoadBarsCSV(path string) ([]DailyBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bars file: %w", err)
	}
	defer f.Close()
	return ReadBarsCSV(f)
}

// ReadBarsCSV parses the bars CSV format from any reader.
func ReadBarsCSV(r io.Reader) ([]DailyBar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing bars csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	bars := make([]DailyBar, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		date, err := time.Parse("2006-01-02", rec[1])
		if err != nil {
			return nil, fmt.Errorf("bars csv row %d: bad date %q: %w", i+2, rec[1], err)
		}
		closePrice, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bars csv row %d: bad close %q: %w", i+2, rec[2], err)
		}
		volume, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("bars csv row %d: bad volume %q: %w", i+2, rec[3], err)
		}
		bars = append(bars, DailyBar{
			Ticker: rec[0],
			Date:   date,
			Close:  closePrice,
			Volume: volume,
		})
	}
	return bars, nil
}

// LoadRankingsJSON reads an array of per-date rankings from a JSON file.
func LoadRankingsJSON(path string) ([]Ranking, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rankings file: %w", err)
	}
	defer f.Close()

	var rankings []Ranking
	if err := json.NewDecoder(f).Decode(&rankings); err != nil {
		return nil, fmt.Errorf("parsing rankings json: %w", err)
	}
	return rankings, nil
}

// LoadStore populates a store from a bars CSV and an optional rankings
// JSON file (empty path skips rankings).
func LoadStore(barsPath, rankingsPath string) (*Store, error) {
	store := NewStore()

	bars, err := LoadBarsCSV(barsPath)
	if err != nil {
		return nil, err
	}
	store.AddBars(bars)

	if rankingsPath != "" {
		rankings, err := LoadRankingsJSON(rankingsPath)
		if err != nil {
			return nil, err
		}
		for _, r := range rankings {
			store.AddRanking(r)
		}
	}
	return store, nil
}
