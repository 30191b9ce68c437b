package agp

import (
	"fmt"
	"slices"
	"time"

	"github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/stats"
)

type ImageType string

const (
	ImageAmbulatoryGlucoseProfile ImageType = "ambulatoryGlucoseProfile"
	ImagePercentInRanges          ImageType = "percentInRanges"
	ImageDailyGlucoseProfiles     ImageType = "dailyGlucoseProfiles"
)

var AllImageTypes = []ImageType{
	ImageAmbulatoryGlucoseProfile,
	ImagePercentInRanges,
	ImageDailyGlucoseProfiles,
}

var ErrUnknownImageType = fmt.Errorf("%w: unknown image type", errors.InvalidArgument)

func (t ImageType) Validate() error {
	if !slices.Contains(AllImageTypes, t) {
		return fmt.Errorf("%w %q", ErrUnknownImageType, t)
	}
	return nil
}

type Image struct {
	Id          string `json:"id"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// Options are snapshotted when a patient is loaded
type Options struct {
	Bounds glucose.BgBounds
	Images []ImageType
}

type Request struct {
	PatientId string
	Period    stats.Period
	Options   Options
}

type DailyProfile struct {
	Date        stats.LocalDateKey      `json:"date"`
	TimeInRange stats.TimeInRangeCounts `json:"timeInRange"`
	Readings    []glucose.Reading       `json:"-"`
}

type Report struct {
	Id          string
	PatientId   string
	State       State
	Period      stats.Period
	Bounds      glucose.BgBounds
	Summary     *stats.Summary
	Percentiles []stats.PercentileBin
	Daily       []DailyProfile
	Images      map[ImageType]Image
	CreatedTime time.Time
}
