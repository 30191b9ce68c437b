package glucose

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tidepool-org/blip/errors"
)

type Band string

const (
	BandVeryLow  Band = "veryLow"
	BandLow      Band = "low"
	BandTarget   Band = "target"
	BandHigh     Band = "high"
	BandVeryHigh Band = "veryHigh"
)

// Bands are ordered from lowest to highest glucose
var Bands = []Band{BandVeryLow, BandLow, BandTarget, BandHigh, BandVeryHigh}

var titleCaser = cases.Title(language.English)

// Label returns the display label, e.g. "Very Low"
func (b Band) Label() string {
	var words []string
	start := 0
	s := string(b)
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return titleCaser.String(strings.Join(words, " "))
}

type Mode int

const (
	ThreeWay Mode = iota
	FiveWay
)

var ErrInvalidValue = fmt.Errorf("%w: glucose value", errors.InvalidArgument)

// Classify assigns value to a band. Values on a target bound are in target,
// values equal to the very low threshold are low and values equal to the very
// high threshold are high.
func Classify(bounds BgBounds, value float64, mode Mode) (Band, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return "", fmt.Errorf("%w: %v", ErrInvalidValue, value)
	}

	switch mode {
	case ThreeWay:
		if err := bounds.ValidateTarget(); err != nil {
			return "", err
		}
		return classifyThreeWay(bounds, value), nil
	case FiveWay:
		if err := bounds.Validate(); err != nil {
			return "", err
		}
		return classifyFiveWay(bounds, value), nil
	default:
		return "", fmt.Errorf("%w: unknown classification mode %d", errors.InvalidArgument, mode)
	}
}

func classifyThreeWay(bounds BgBounds, value float64) Band {
	switch {
	case value < bounds.TargetLowerBound:
		return BandLow
	case value > bounds.TargetUpperBound:
		return BandHigh
	default:
		return BandTarget
	}
}

// classifyFiveWay expects validated bounds
func classifyFiveWay(bounds BgBounds, value float64) Band {
	switch {
	case value < bounds.VeryLowThreshold:
		return BandVeryLow
	case value < bounds.TargetLowerBound:
		return BandLow
	case value <= bounds.TargetUpperBound:
		return BandTarget
	case value <= bounds.VeryHighThreshold:
		return BandHigh
	default:
		return BandVeryHigh
	}
}

// Classifier classifies many values against bounds that were validated once
type Classifier struct {
	bounds BgBounds
}

func NewClassifier(bounds BgBounds) (*Classifier, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{bounds: bounds}, nil
}

func (c *Classifier) Bounds() BgBounds {
	return c.bounds
}

// Classify returns false for values that are not valid measurements
func (c *Classifier) Classify(value float64) (Band, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return "", false
	}
	return classifyFiveWay(c.bounds, value), true
}

type CvClass string

const (
	CvTarget CvClass = "target"
	CvHigh   CvClass = "high"

	CvTargetThreshold = 36.0
)

func ClassifyCv(value float64) CvClass {
	if value <= CvTargetThreshold {
		return CvTarget
	}
	return CvHigh
}
