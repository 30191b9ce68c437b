package stats

import (
	"github.com/shopspring/decimal"

	"github.com/tidepool-org/blip/glucose"
)

// TimeInRangeCounts holds the number of readings in each band. The band counts always add up to Total.
type TimeInRangeCounts struct {
	VeryLow  int `json:"veryLow" bson:"veryLow"`
	Low      int `json:"low" bson:"low"`
	Target   int `json:"target" bson:"target"`
	High     int `json:"high" bson:"high"`
	VeryHigh int `json:"veryHigh" bson:"veryHigh"`
	Total    int `json:"total" bson:"total"`
}

// Aggregate classifies every valid reading against bounds. Readings are
// converted to the bounds units first. Invalid readings are skipped.
func Aggregate(readings []glucose.Reading, bounds glucose.BgBounds) (TimeInRangeCounts, error) {
	classifier, err := glucose.NewClassifier(bounds)
	if err != nil {
		return TimeInRangeCounts{}, err
	}

	counts := TimeInRangeCounts{}
	for _, r := range readings {
		if !r.IsValid() {
			continue
		}
		band, ok := classifier.Classify(r.ValueIn(bounds.Units))
		if !ok {
			continue
		}
		counts.Add(band)
	}
	return counts, nil
}

func (c *TimeInRangeCounts) Add(band glucose.Band) {
	switch band {
	case glucose.BandVeryLow:
		c.VeryLow++
	case glucose.BandLow:
		c.Low++
	case glucose.BandTarget:
		c.Target++
	case glucose.BandHigh:
		c.High++
	case glucose.BandVeryHigh:
		c.VeryHigh++
	default:
		return
	}
	c.Total++
}

func (c TimeInRangeCounts) Count(band glucose.Band) int {
	switch band {
	case glucose.BandVeryLow:
		return c.VeryLow
	case glucose.BandLow:
		return c.Low
	case glucose.BandTarget:
		return c.Target
	case glucose.BandHigh:
		return c.High
	case glucose.BandVeryHigh:
		return c.VeryHigh
	}
	return 0
}

// Percent returns the whole number percentage of readings in band, or nil when there are no readings
func (c TimeInRangeCounts) Percent(band glucose.Band) *float64 {
	return c.PercentWithPlaces(band, 0)
}

func (c TimeInRangeCounts) PercentWithPlaces(band glucose.Band, places int32) *float64 {
	p := c.percentDecimal(band, places)
	if p == nil {
		return nil
	}
	v := p.InexactFloat64()
	return &v
}

func (c TimeInRangeCounts) percentDecimal(band glucose.Band, places int32) *decimal.Decimal {
	if c.Total == 0 {
		return nil
	}
	p := decimal.NewFromInt(int64(c.Count(band))).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(c.Total))).
		RoundBank(places)
	return &p
}

// Percentages returns the whole number percentage for every band, or nil when there are no readings
func (c TimeInRangeCounts) Percentages() map[glucose.Band]float64 {
	if c.Total == 0 {
		return nil
	}
	result := make(map[glucose.Band]float64, len(glucose.Bands))
	for _, band := range glucose.Bands {
		result[band] = *c.Percent(band)
	}
	return result
}
