package stats

import (
	"time"

	"github.com/tidepool-org/blip/glucose"
)

// Summary is the read only result of aggregating one period of readings
type Summary struct {
	Period Period
	Bounds glucose.BgBounds

	TimeInRange TimeInRangeCounts

	AverageGlucose              *float64
	StandardDeviation           *float64
	CoefficientOfVariation      *float64
	CoefficientOfVariationClass glucose.CvClass
	GlucoseManagementIndicator  *float64
	// AGPGlucoseManagementIndicator is reported regardless of coverage
	AGPGlucoseManagementIndicator *float64

	SensorUsage *float64
	Coverage    time.Duration
	DaysWorn    int

	TotalReadings int
	ValidReadings int
	FirstReading  *time.Time
	LastReading   *time.Time

	InsufficientData bool
}

// Compute aggregates the readings that fall into period. Values are reported
// in the units of bounds, unrounded.
func Compute(readings []glucose.Reading, bounds glucose.BgBounds, period Period) (*Summary, error) {
	inPeriod := period.Filter(readings)

	counts, err := Aggregate(inPeriod, bounds)
	if err != nil {
		return nil, err
	}

	units := bounds.Units
	if units == "" {
		units = glucose.MgdL
	}

	summary := &Summary{
		Period:        period,
		Bounds:        bounds,
		TimeInRange:   counts,
		TotalReadings: len(inPeriod),
		ValidReadings: counts.Total,
		Coverage:      Coverage(inPeriod),
		DaysWorn:      DaysWorn(BucketInLocation(inPeriod, period.Location)),
	}

	for _, r := range inPeriod {
		if !r.IsValid() {
			continue
		}
		t := r.Time
		if summary.FirstReading == nil || t.Before(*summary.FirstReading) {
			summary.FirstReading = &t
		}
		if summary.LastReading == nil || t.After(*summary.LastReading) {
			summary.LastReading = &t
		}
	}

	summary.AverageGlucose = AverageGlucose(inPeriod, units)
	summary.StandardDeviation = StandardDeviation(inPeriod, units)
	summary.CoefficientOfVariation = CoefficientOfVariation(inPeriod)
	if summary.CoefficientOfVariation != nil {
		summary.CoefficientOfVariationClass = glucose.ClassifyCv(*summary.CoefficientOfVariation)
	}
	summary.SensorUsage = SensorUsage(summary.Coverage, period)

	if meanMgdL := AverageGlucose(inPeriod, glucose.MgdL); meanMgdL != nil {
		gmi := GlucoseManagementIndicator(*meanMgdL)
		summary.AGPGlucoseManagementIndicator = &gmi
	}

	summary.InsufficientData = !HasSufficientCoverage(summary.Coverage)
	if !summary.InsufficientData {
		summary.GlucoseManagementIndicator = summary.AGPGlucoseManagementIndicator
	}

	return summary, nil
}

func (s *Summary) HasData() bool {
	return s != nil && s.ValidReadings > 0
}
