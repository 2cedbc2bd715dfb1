// Package schedule generates the ordered rebalance dates for a backtest.
package schedule

import (
	"time"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

// Frequency is the rebalance cadence.
type Frequency string

const (
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Annually  Frequency = "annually"
)

// ParseFrequency validates a configured frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case Monthly, Quarterly, Annually:
		return Frequency(s), nil
	default:
		return "", models.NewConfigurationError("rebalance_frequency", "unrecognized frequency %q", s)
	}
}

// Period is one rebalance interval. End is exclusive and equals the next
// period's start; the final period's End is the overall end date even when
// that leaves it shorter than a full interval.
type Period struct {
	Start time.Time
	End   time.Time
}

// PeriodStarts returns the ordered period-start dates covering [start, end),
// anchored to calendar month/quarter/year boundaries. When start is not
// itself an anchor it is emitted first and subsequent dates snap to anchors,
// so the interval is always fully covered. Pure function of its inputs.
func PeriodStarts(start, end time.Time, freq Frequency) ([]time.Time, error) {
	if _, err := ParseFrequency(string(freq)); err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, models.NewConfigurationError("dates", "start %s is not before end %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	starts := []time.Time{truncateToDay(start)}
	next := advance(floorAnchor(start, freq), freq)
	for next.Before(end) {
		starts = append(starts, next)
		next = advance(next, freq)
	}
	return starts, nil
}

// Periods pairs each start with its end: the next start, or the overall end
// for the last period.
func Periods(start, end time.Time, freq Frequency) ([]Period, error) {
	starts, err := PeriodStarts(start, end, freq)
	if err != nil {
		return nil, err
	}
	periods := make([]Period, len(starts))
	for i, s := range starts {
		periodEnd := truncateToDay(end)
		if i < len(starts)-1 {
			periodEnd = starts[i+1]
		}
		periods[i] = Period{Start: s, End: periodEnd}
	}
	return periods, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func floorAnchor(t time.Time, freq Frequency) time.Time {
	switch freq {
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case Quarterly:
		quarterStart := time.Month(((int(t.Month())-1)/3)*3 + 1)
		return time.Date(t.Year(), quarterStart, 1, 0, 0, 0, 0, t.Location())
	default: // Annually
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	}
}

func advance(anchor time.Time, freq Frequency) time.Time {
	switch freq {
	case Monthly:
		return anchor.AddDate(0, 1, 0)
	case Quarterly:
		return anchor.AddDate(0, 3, 0)
	default: // Annually
		return anchor.AddDate(1, 0, 0)
	}
}
