package stats

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/pointer"
)

const deltaPlaces = 1

// BandDelta compares the percentage of time spent in a band across two periods.
// Each percentage is rounded before differencing, so Delta is the difference of
// the displayed values rather than the rounded true difference.
type BandDelta struct {
	Band     glucose.Band `json:"band"`
	Current  *float64     `json:"current,omitempty"`
	Previous *float64     `json:"previous,omitempty"`
	Delta    *float64     `json:"delta,omitempty"`
	Text     string       `json:"text,omitempty"`
}

type DeltaSummary struct {
	InsufficientData bool        `json:"insufficientData"`
	Bands            []BandDelta `json:"bands"`
}

func (d DeltaSummary) Band(band glucose.Band) (BandDelta, bool) {
	for _, b := range d.Bands {
		if b.Band == band {
			return b, true
		}
	}
	return BandDelta{}, false
}

// CompareTimeInRange builds per band deltas. Deltas are omitted when either period has no readings.
func CompareTimeInRange(current, previous TimeInRangeCounts) DeltaSummary {
	summary := DeltaSummary{
		InsufficientData: current.Total == 0 || previous.Total == 0,
		Bands:            make([]BandDelta, 0, len(glucose.Bands)),
	}

	for _, band := range glucose.Bands {
		delta := BandDelta{Band: band}
		cur := current.percentDecimal(band, deltaPlaces)
		prev := previous.percentDecimal(band, deltaPlaces)
		if cur != nil {
			delta.Current = pointer.FromAny(cur.InexactFloat64())
		}
		if prev != nil {
			delta.Previous = pointer.FromAny(prev.InexactFloat64())
		}
		if !summary.InsufficientData {
			diff := cur.Sub(*prev)
			delta.Delta = pointer.FromAny(diff.InexactFloat64())
			delta.Text = DeltaText(diff)
		}
		summary.Bands = append(summary.Bands, delta)
	}

	return summary
}

// CompareSummaries requires both periods to meet the minimum coverage
func CompareSummaries(current, previous *Summary) DeltaSummary {
	if current == nil || previous == nil || current.InsufficientData || previous.InsufficientData {
		var cur, prev TimeInRangeCounts
		if current != nil {
			cur = current.TimeInRange
		}
		if previous != nil {
			prev = previous.TimeInRange
		}
		summary := CompareTimeInRange(cur, prev)
		summary.InsufficientData = true
		for i := range summary.Bands {
			summary.Bands[i].Delta = nil
			summary.Bands[i].Text = ""
		}
		return summary
	}
	return CompareTimeInRange(current.TimeInRange, previous.TimeInRange)
}

func DeltaText(diff decimal.Decimal) string {
	switch diff.Sign() {
	case 0:
		return "Did not change"
	case 1:
		return fmt.Sprintf("Increased by %s%%", diff.String())
	default:
		return fmt.Sprintf("Decreased by %s%%", diff.Abs().String())
	}
}
