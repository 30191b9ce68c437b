package summary

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"

	"github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/stats"
	"github.com/tidepool-org/blip/store"
)

//go:generate mockgen --build_flags=--mod=mod -source=./summary.go -destination=./test/mock_service.go -package test MockService

const (
	TypeCGM = "cgm"
)

var (
	ErrNotFound       = fmt.Errorf("summary %w", errors.NotFound)
	ErrInvalidSummary = fmt.Errorf("%w: summary", errors.InvalidArgument)
)

var Module = fx.Provide(NewRepository, NewService)

// Periods are the keys of the rolling periods of a summary in ascending length
var Periods = []string{"1d", "7d", "14d", "30d"}

var periodDays = map[string]int{
	"1d":  1,
	"7d":  7,
	"14d": 14,
	"30d": 30,
}

// Repository persists summaries
type Repository interface {
	Get(ctx context.Context, userId string) (*Summary, error)
	List(ctx context.Context, filter *Filter, pagination store.Pagination, sorts []*store.Sort) (*ListResult, error)
	CreateOrUpdate(ctx context.Context, summary *Summary) error
	Remove(ctx context.Context, userId string) error
}

type Service interface {
	Repository

	// Refresh recalculates the summary of the user from the readings in the data service
	Refresh(ctx context.Context, userId string, bounds glucose.BgBounds, loc *time.Location) (*Summary, error)
}

type Filter struct {
	UserIds []string

	// Period is the key of the period the numeric filters apply to, defaults to 14d
	Period string

	TimeCGMUsePercentCmp   *string
	TimeCGMUsePercentValue float64

	TimeInTargetPercentCmp   *string
	TimeInTargetPercentValue float64

	TimeInVeryLowPercentCmp   *string
	TimeInVeryLowPercentValue float64
}

type ListResult struct {
	Summaries  []*Summary `bson:"data"`
	TotalCount int        `bson:"count"`
}

type AverageGlucose struct {
	Units glucose.Units `json:"units" bson:"units"`
	Value float64       `json:"value" bson:"value"`
}

type Dates struct {
	LastUpdatedDate time.Time  `json:"lastUpdatedDate" bson:"lastUpdatedDate"`
	FirstData       *time.Time `json:"firstData,omitempty" bson:"firstData,omitempty"`
	LastData        *time.Time `json:"lastData,omitempty" bson:"lastData,omitempty"`
	OutdatedSince   *time.Time `json:"outdatedSince,omitempty" bson:"outdatedSince,omitempty"`
}

type CGMPeriod struct {
	HasAverageGlucose             bool `json:"hasAverageGlucose" bson:"hasAverageGlucose"`
	HasGlucoseManagementIndicator bool `json:"hasGlucoseManagementIndicator" bson:"hasGlucoseManagementIndicator"`
	HasTimeCGMUsePercent          bool `json:"hasTimeCGMUsePercent" bson:"hasTimeCGMUsePercent"`
	HasTimeInTargetPercent        bool `json:"hasTimeInTargetPercent" bson:"hasTimeInTargetPercent"`
	HasTimeInVeryLowPercent       bool `json:"hasTimeInVeryLowPercent" bson:"hasTimeInVeryLowPercent"`

	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`

	InsufficientData bool `json:"insufficientData" bson:"insufficientData"`
	DaysWorn         int  `json:"daysWorn" bson:"daysWorn"`

	TimeCGMUsePercent *float64 `json:"timeCGMUsePercent" bson:"timeCGMUsePercent"`
	TimeCGMUseMinutes int      `json:"timeCGMUseMinutes" bson:"timeCGMUseMinutes"`
	TimeCGMUseRecords int      `json:"timeCGMUseRecords" bson:"timeCGMUseRecords"`

	AverageGlucose                *AverageGlucose `json:"averageGlucose" bson:"averageGlucose"`
	GlucoseManagementIndicator    *float64        `json:"glucoseManagementIndicator" bson:"glucoseManagementIndicator"`
	AGPGlucoseManagementIndicator *float64        `json:"agpGlucoseManagementIndicator" bson:"agpGlucoseManagementIndicator"`
	StandardDeviation             *float64        `json:"standardDeviation" bson:"standardDeviation"`
	CoefficientOfVariation        *float64        `json:"coefficientOfVariation" bson:"coefficientOfVariation"`

	TimeInVeryLowPercent *float64 `json:"timeInVeryLowPercent" bson:"timeInVeryLowPercent"`
	TimeInVeryLowRecords int      `json:"timeInVeryLowRecords" bson:"timeInVeryLowRecords"`

	TimeInLowPercent *float64 `json:"timeInLowPercent" bson:"timeInLowPercent"`
	TimeInLowRecords int      `json:"timeInLowRecords" bson:"timeInLowRecords"`

	TimeInTargetPercent *float64 `json:"timeInTargetPercent" bson:"timeInTargetPercent"`
	TimeInTargetRecords int      `json:"timeInTargetRecords" bson:"timeInTargetRecords"`

	TimeInHighPercent *float64 `json:"timeInHighPercent" bson:"timeInHighPercent"`
	TimeInHighRecords int      `json:"timeInHighRecords" bson:"timeInHighRecords"`

	TimeInVeryHighPercent *float64 `json:"timeInVeryHighPercent" bson:"timeInVeryHighPercent"`
	TimeInVeryHighRecords int      `json:"timeInVeryHighRecords" bson:"timeInVeryHighRecords"`
}

type Summary struct {
	Id       *primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Type     string              `json:"type" bson:"type"`
	UserId   string              `json:"userId" bson:"userId"`
	Timezone string              `json:"timezone" bson:"timezone"`
	Bounds   glucose.BgBounds    `json:"bounds" bson:"bounds"`
	Dates    Dates               `json:"dates" bson:"dates"`

	Periods       map[string]*CGMPeriod         `json:"periods" bson:"periods"`
	OffsetPeriods map[string]*CGMPeriod         `json:"offsetPeriods" bson:"offsetPeriods"`
	Deltas        map[string]stats.DeltaSummary `json:"deltas" bson:"deltas"`
}

func NewPeriod(s *stats.Summary) *CGMPeriod {
	counts := s.TimeInRange
	period := &CGMPeriod{
		Start:            s.Period.Start,
		End:              s.Period.End,
		InsufficientData: s.InsufficientData,
		DaysWorn:         s.DaysWorn,

		TimeCGMUsePercent: s.SensorUsage,
		TimeCGMUseMinutes: int(s.Coverage / time.Minute),
		TimeCGMUseRecords: counts.Total,

		GlucoseManagementIndicator:    s.GlucoseManagementIndicator,
		AGPGlucoseManagementIndicator: s.AGPGlucoseManagementIndicator,
		StandardDeviation:             s.StandardDeviation,
		CoefficientOfVariation:        s.CoefficientOfVariation,

		TimeInVeryLowPercent:  counts.PercentWithPlaces(glucose.BandVeryLow, 1),
		TimeInVeryLowRecords:  counts.VeryLow,
		TimeInLowPercent:      counts.PercentWithPlaces(glucose.BandLow, 1),
		TimeInLowRecords:      counts.Low,
		TimeInTargetPercent:   counts.PercentWithPlaces(glucose.BandTarget, 1),
		TimeInTargetRecords:   counts.Target,
		TimeInHighPercent:     counts.PercentWithPlaces(glucose.BandHigh, 1),
		TimeInHighRecords:     counts.High,
		TimeInVeryHighPercent: counts.PercentWithPlaces(glucose.BandVeryHigh, 1),
		TimeInVeryHighRecords: counts.VeryHigh,
	}

	if s.AverageGlucose != nil {
		period.AverageGlucose = &AverageGlucose{
			Units: s.Bounds.Units,
			Value: *s.AverageGlucose,
		}
	}

	period.HasAverageGlucose = period.AverageGlucose != nil
	period.HasGlucoseManagementIndicator = period.GlucoseManagementIndicator != nil
	period.HasTimeCGMUsePercent = period.TimeCGMUsePercent != nil
	period.HasTimeInTargetPercent = period.TimeInTargetPercent != nil
	period.HasTimeInVeryLowPercent = period.TimeInVeryLowPercent != nil

	return period
}

// AnchorTime is the exclusive end the rolling periods are computed from
func AnchorTime(lastData *time.Time, now time.Time) time.Time {
	if lastData == nil {
		return now
	}
	return lastData.Add(time.Nanosecond)
}

// DataStart returns the start of the offset of the longest rolling period
// anchored at end. Readings from then on are needed to calculate a summary.
func DataStart(end time.Time, loc *time.Location) (time.Time, error) {
	longest := Periods[len(Periods)-1]
	period, err := stats.PeriodOfDays(end, periodDays[longest], loc)
	if err != nil {
		return time.Time{}, err
	}
	return period.Offset().Start, nil
}

// Calculate builds the summary of every rolling period ending at the local
// midnight after the last valid reading, or after now when there is no data.
func Calculate(userId string, readings []glucose.Reading, bounds glucose.BgBounds, loc *time.Location, now time.Time) (*Summary, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidSummary)
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	cgm := glucose.FilterByType(readings, glucose.TypeCBG)

	result := &Summary{
		Type:          TypeCGM,
		UserId:        userId,
		Timezone:      loc.String(),
		Bounds:        bounds,
		Periods:       make(map[string]*CGMPeriod, len(Periods)),
		OffsetPeriods: make(map[string]*CGMPeriod, len(Periods)),
		Deltas:        make(map[string]stats.DeltaSummary, len(Periods)),
		Dates: Dates{
			LastUpdatedDate: now,
		},
	}

	for _, r := range cgm {
		if !r.IsValid() {
			continue
		}
		t := r.Time
		if result.Dates.FirstData == nil || t.Before(*result.Dates.FirstData) {
			result.Dates.FirstData = &t
		}
		if result.Dates.LastData == nil || t.After(*result.Dates.LastData) {
			result.Dates.LastData = &t
		}
	}

	end := AnchorTime(result.Dates.LastData, now)
	for _, key := range Periods {
		period, err := stats.PeriodOfDays(end, periodDays[key], loc)
		if err != nil {
			return nil, err
		}

		current, err := stats.Compute(cgm, bounds, period)
		if err != nil {
			return nil, err
		}
		previous, err := stats.Compute(cgm, bounds, period.Offset())
		if err != nil {
			return nil, err
		}

		result.Periods[key] = NewPeriod(current)
		result.OffsetPeriods[key] = NewPeriod(previous)
		result.Deltas[key] = stats.CompareSummaries(current, previous)
	}

	return result, nil
}
