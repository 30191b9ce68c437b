package stats

import (
	"math"
	"sort"
	"time"

	"github.com/tidepool-org/blip/glucose"
)

const (
	AGPBinDuration = 30 * time.Minute
	AGPBinCount    = int(24 * time.Hour / AGPBinDuration)
)

// AGPQuantiles are the percentiles plotted on the ambulatory glucose profile
var AGPQuantiles = []float64{0.05, 0.25, 0.5, 0.75, 0.95}

// PercentileBin summarizes the readings taken within one slot of the local day
type PercentileBin struct {
	// Offset from local midnight to the start of the slot
	Offset time.Duration `json:"offset"`
	Count  int           `json:"count"`
	Min    *float64      `json:"min,omitempty"`
	P5     *float64      `json:"p5,omitempty"`
	P25    *float64      `json:"p25,omitempty"`
	P50    *float64      `json:"p50,omitempty"`
	P75    *float64      `json:"p75,omitempty"`
	P95    *float64      `json:"p95,omitempty"`
	Max    *float64      `json:"max,omitempty"`
}

func (b PercentileBin) Midpoint() time.Duration {
	return b.Offset + AGPBinDuration/2
}

// AGPPercentiles bins valid readings by local time of day and computes the AGP quantiles of each bin
func AGPPercentiles(readings []glucose.Reading, units glucose.Units, loc *time.Location) []PercentileBin {
	values := make([][]float64, AGPBinCount)
	for _, r := range readings {
		if !r.IsValid() {
			continue
		}
		local := r.Time.In(loc)
		sinceMidnight := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute + time.Duration(local.Second())*time.Second
		idx := int(sinceMidnight / AGPBinDuration)
		values[idx] = append(values[idx], r.ValueIn(units))
	}

	bins := make([]PercentileBin, AGPBinCount)
	for i := range bins {
		bin := PercentileBin{
			Offset: time.Duration(i) * AGPBinDuration,
			Count:  len(values[i]),
		}
		if bin.Count > 0 {
			sorted := values[i]
			sort.Float64s(sorted)
			bin.Min = &sorted[0]
			bin.Max = &sorted[len(sorted)-1]
			q := make([]*float64, len(AGPQuantiles))
			for j, p := range AGPQuantiles {
				v := Quantile(sorted, p)
				q[j] = &v
			}
			bin.P5, bin.P25, bin.P50, bin.P75, bin.P95 = q[0], q[1], q[2], q[3], q[4]
		}
		bins[i] = bin
	}
	return bins
}

// Quantile interpolates linearly between the closest ranks of sorted values
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 || n == 1 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
