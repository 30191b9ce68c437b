package glucose

import (
	"fmt"
	"math"

	"github.com/tidepool-org/blip/errors"
)

var ErrInvalidBounds = fmt.Errorf("%w: glucose bounds", errors.InvalidArgument)

// BgBounds are the thresholds that partition glucose values into bands.
// A zero VeryLowThreshold or VeryHighThreshold means the threshold is not set.
type BgBounds struct {
	VeryLowThreshold  float64 `json:"veryLowThreshold,omitempty" bson:"veryLowThreshold,omitempty"`
	TargetLowerBound  float64 `json:"targetLowerBound" bson:"targetLowerBound"`
	TargetUpperBound  float64 `json:"targetUpperBound" bson:"targetUpperBound"`
	VeryHighThreshold float64 `json:"veryHighThreshold,omitempty" bson:"veryHighThreshold,omitempty"`
	Units             Units   `json:"units" bson:"units"`
}

func (b BgBounds) ValidateTarget() error {
	if !isPositive(b.TargetLowerBound) || !isPositive(b.TargetUpperBound) {
		return fmt.Errorf("%w: target bounds must be positive numbers", ErrInvalidBounds)
	}
	if b.TargetLowerBound >= b.TargetUpperBound {
		return fmt.Errorf("%w: target lower bound %v must be below upper bound %v", ErrInvalidBounds, b.TargetLowerBound, b.TargetUpperBound)
	}
	return nil
}

// Validate checks the full five band ordering
func (b BgBounds) Validate() error {
	if err := b.ValidateTarget(); err != nil {
		return err
	}
	if !isPositive(b.VeryLowThreshold) || !isPositive(b.VeryHighThreshold) {
		return fmt.Errorf("%w: very low and very high thresholds are required", ErrInvalidBounds)
	}
	if b.VeryLowThreshold >= b.TargetLowerBound || b.TargetUpperBound >= b.VeryHighThreshold {
		return fmt.Errorf("%w: thresholds must be strictly increasing", ErrInvalidBounds)
	}
	if b.Units != "" {
		if err := b.Units.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// In converts the bounds to the given units, rounding to the display precision of the target units
func (b BgBounds) In(units Units) BgBounds {
	if b.Units == units || b.Units == "" {
		b.Units = units
		return b
	}
	places := units.Precision()
	convert := func(v float64) float64 {
		if v == 0 {
			return 0
		}
		return Round(Convert(v, b.Units, units), places)
	}
	return BgBounds{
		VeryLowThreshold:  convert(b.VeryLowThreshold),
		TargetLowerBound:  convert(b.TargetLowerBound),
		TargetUpperBound:  convert(b.TargetUpperBound),
		VeryHighThreshold: convert(b.VeryHighThreshold),
		Units:             units,
	}
}

func isPositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

type Preset string

const (
	PresetADAStandard      Preset = "ADA_STANDARD"
	PresetADAOlderHighRisk Preset = "ADA_OLDER_HIGH_RISK"
	PresetADAPregnancyT1   Preset = "ADA_PREGNANCY_T1"
	PresetADAGestationalT2 Preset = "ADA_GESTATIONAL_T2"
)

var ErrUnknownPreset = fmt.Errorf("%w: glycemic range preset", errors.InvalidArgument)

var presets = map[Preset]BgBounds{
	PresetADAStandard: {
		VeryLowThreshold:  54,
		TargetLowerBound:  70,
		TargetUpperBound:  180,
		VeryHighThreshold: 250,
		Units:             MgdL,
	},
	PresetADAOlderHighRisk: {
		VeryLowThreshold:  54,
		TargetLowerBound:  70,
		TargetUpperBound:  180,
		VeryHighThreshold: 250,
		Units:             MgdL,
	},
	PresetADAPregnancyT1: {
		VeryLowThreshold:  54,
		TargetLowerBound:  63,
		TargetUpperBound:  140,
		VeryHighThreshold: 250,
		Units:             MgdL,
	},
	PresetADAGestationalT2: {
		VeryLowThreshold:  54,
		TargetLowerBound:  63,
		TargetUpperBound:  140,
		VeryHighThreshold: 250,
		Units:             MgdL,
	},
}

func (p Preset) Validate() error {
	if _, ok := presets[p]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, string(p))
	}
	return nil
}

// BoundsForPreset returns the preset bounds expressed in units
func BoundsForPreset(preset Preset, units Units) (BgBounds, error) {
	bounds, ok := presets[preset]
	if !ok {
		return BgBounds{}, fmt.Errorf("%w: %q", ErrUnknownPreset, string(preset))
	}
	if err := units.Validate(); err != nil {
		return BgBounds{}, err
	}
	return bounds.In(units), nil
}
