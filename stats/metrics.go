package stats

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidepool-org/blip/glucose"
)

const (
	// MinimumCoverage is the weighted CGM wear required before GMI and deltas are reported
	MinimumCoverage = 24 * time.Hour

	DefaultSampleFrequency = 5 * time.Minute
	LibreSampleFrequency   = 15 * time.Minute

	gmiIntercept = 3.31
	gmiSlope     = 0.02392
)

// SampleFrequency is the amount of time a single reading represents
func SampleFrequency(r glucose.Reading) time.Duration {
	if r.Type == glucose.TypeSMBG {
		return 0
	}
	if r.SampleInterval > 0 {
		return r.SampleInterval
	}
	if strings.HasPrefix(r.DeviceId, "AbbottFreeStyleLibre") && !strings.HasPrefix(r.DeviceId, "AbbottFreeStyleLibre3") {
		return LibreSampleFrequency
	}
	return DefaultSampleFrequency
}

// Coverage is the summed sample frequency of valid CGM readings
func Coverage(readings []glucose.Reading) time.Duration {
	var covered time.Duration
	for _, r := range readings {
		if r.IsValid() && r.IsContinuous() {
			covered += SampleFrequency(r)
		}
	}
	return covered
}

func HasSufficientCoverage(covered time.Duration) bool {
	return covered >= MinimumCoverage
}

// SensorUsage returns the percentage of the period covered by CGM readings, capped at 100
func SensorUsage(covered time.Duration, period Period) *float64 {
	if period.Duration() <= 0 {
		return nil
	}
	usage := float64(covered) / float64(period.Duration()) * 100
	if usage > 100 {
		usage = 100
	}
	return &usage
}

func validValues(readings []glucose.Reading, units glucose.Units) []float64 {
	values := make([]float64, 0, len(readings))
	for _, r := range readings {
		if r.IsValid() {
			values = append(values, r.ValueIn(units))
		}
	}
	return values
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// AverageGlucose returns the unrounded mean of valid readings in units, or nil when there are none
func AverageGlucose(readings []glucose.Reading, units glucose.Units) *float64 {
	values := validValues(readings, units)
	if len(values) == 0 {
		return nil
	}
	avg := mean(values)
	return &avg
}

// StandardDeviation returns the sample standard deviation of valid readings
func StandardDeviation(readings []glucose.Reading, units glucose.Units) *float64 {
	values := validValues(readings, units)
	if len(values) < 2 {
		return nil
	}
	avg := mean(values)
	squared := 0.0
	for _, v := range values {
		squared += (v - avg) * (v - avg)
	}
	sd := math.Sqrt(squared / float64(len(values)-1))
	return &sd
}

// CoefficientOfVariation returns SD / mean as a percentage
func CoefficientOfVariation(readings []glucose.Reading) *float64 {
	avg := AverageGlucose(readings, glucose.MgdL)
	sd := StandardDeviation(readings, glucose.MgdL)
	if avg == nil || sd == nil || *avg == 0 {
		return nil
	}
	cv := *sd / *avg * 100
	return &cv
}

// GlucoseManagementIndicator estimates A1c (percent) from the mean glucose in mg/dL
func GlucoseManagementIndicator(meanMgdL float64) float64 {
	return gmiIntercept + gmiSlope*meanMgdL
}

// FormatGlucose renders value with the fixed display precision of units
func FormatGlucose(value float64, units glucose.Units) string {
	return decimal.NewFromFloat(value).StringFixedBank(units.Precision())
}

// FormatPercent renders a percent with the given number of decimal places
func FormatPercent(value float64, places int32) string {
	return decimal.NewFromFloat(value).StringFixedBank(places)
}
