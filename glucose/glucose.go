package glucose

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidepool-org/blip/errors"
)

type Units string

const (
	MgdL  Units = "mg/dL"
	MmolL Units = "mmol/L"

	MgdLPerMmolL = 18.01559
)

var ErrInvalidUnits = fmt.Errorf("%w: glucose units", errors.InvalidArgument)

// ParseUnits accepts the spellings used across upload clients
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mg/dl", "mgdl":
		return MgdL, nil
	case "mmol/l", "mmoll":
		return MmolL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUnits, s)
}

func (u Units) Validate() error {
	if u != MgdL && u != MmolL {
		return fmt.Errorf("%w: %q", ErrInvalidUnits, string(u))
	}
	return nil
}

// Precision returns the number of decimal places glucose values are displayed with
func (u Units) Precision() int32 {
	if u == MmolL {
		return 1
	}
	return 0
}

// Convert converts value from one unit to another. Values are returned unrounded.
func Convert(value float64, from, to Units) float64 {
	if from == to || from == "" || to == "" {
		return value
	}
	if to == MgdL {
		return value * MgdLPerMmolL
	}
	return value / MgdLPerMmolL
}

// Round rounds half to even at the given number of decimal places
func Round(value float64, places int32) float64 {
	return decimal.NewFromFloat(value).RoundBank(places).InexactFloat64()
}

const (
	TypeCBG  = "cbg"
	TypeSMBG = "smbg"
)

// Reading is a single ingested glucose measurement
type Reading struct {
	Time           time.Time
	Value          float64
	Units          Units
	Type           string
	DeviceId       string
	SampleInterval time.Duration
}

// IsValid reports whether the reading carries a usable measurement
func (r Reading) IsValid() bool {
	return !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) && r.Value > 0
}

func (r Reading) IsContinuous() bool {
	return r.Type == TypeCBG || r.Type == ""
}

// ValueIn returns the reading value expressed in the requested units
func (r Reading) ValueIn(units Units) float64 {
	return Convert(r.Value, r.Units, units)
}

func FilterByType(readings []Reading, typ string) []Reading {
	filtered := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if r.Type == typ {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
