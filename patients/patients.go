package patients

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"

	"github.com/tidepool-org/blip/clinics"
	"github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/pointer"
	"github.com/tidepool-org/blip/stats"
	"github.com/tidepool-org/blip/store"
)

//go:generate mockgen --build_flags=--mod=mod -source=./patients.go -destination=./test/mock_service.go -package test MockService

const BirthDateLayout = "2006-01-02"

var ErrNotFound = fmt.Errorf("patient %w", errors.NotFound)
var ErrDuplicatePatient = fmt.Errorf("%w: patient is already a member of the clinic", errors.Duplicate)
var ErrInvalidPatient = fmt.Errorf("%w: patient", errors.InvalidArgument)

var Module = fx.Provide(NewRepository)

type Service interface {
	Get(ctx context.Context, clinicId string, userId string) (*Patient, error)
	List(ctx context.Context, filter *Filter, pagination store.Pagination) ([]*Patient, error)
	Create(ctx context.Context, patient Patient) (*Patient, error)
	// Remove deletes the patient and archives a copy of it
	Remove(ctx context.Context, clinicId string, userId string, deletedByUserId *string) error
}

type Patient struct {
	Id                  *primitive.ObjectID `bson:"_id,omitempty"`
	ClinicId            *primitive.ObjectID `bson:"clinicId,omitempty"`
	UserId              *string             `bson:"userId,omitempty"`
	FullName            *string             `bson:"fullName,omitempty"`
	BirthDate           *string             `bson:"birthDate,omitempty"`
	Mrn                 *string             `bson:"mrn,omitempty"`
	Timezone            *string             `bson:"timezone,omitempty"`
	GlycemicRangePreset *glucose.Preset     `bson:"glycemicRangePreset,omitempty"`
	CreatedTime         time.Time           `bson:"createdTime,omitempty"`
	UpdatedTime         time.Time           `bson:"updatedTime,omitempty"`
}

type Filter struct {
	ClinicId *string
	UserId   *string
	Search   *string
}

func (p Patient) Validate() error {
	if p.ClinicId == nil || p.ClinicId.IsZero() {
		return fmt.Errorf("%w: clinic id is required", ErrInvalidPatient)
	}
	if pointer.ToString(p.UserId) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidPatient)
	}
	if p.BirthDate != nil {
		if _, err := time.Parse(BirthDateLayout, *p.BirthDate); err != nil {
			return fmt.Errorf("%w: birth date %q", ErrInvalidPatient, *p.BirthDate)
		}
	}
	if p.Timezone != nil {
		if _, err := stats.LoadLocation(*p.Timezone); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPatient, err)
		}
	}
	if p.GlycemicRangePreset != nil {
		if err := p.GlycemicRangePreset.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPatient, err)
		}
	}
	return nil
}

// FormattedBirthDate returns the birth date as MM/DD/YYYY or an empty string when it is unknown
func (p Patient) FormattedBirthDate() string {
	if p.BirthDate == nil {
		return ""
	}
	birthDate, err := time.Parse(BirthDateLayout, *p.BirthDate)
	if err != nil {
		return ""
	}
	return birthDate.Format("01/02/2006")
}

// ReportSettings are the bounds and the timezone used to compute the stats of a patient
type ReportSettings struct {
	Bounds   glucose.BgBounds
	Location *time.Location
}

// ResolveReportSettings prefers the patient preset and timezone over the clinic ones.
// The units are always the preferred units of the clinic.
func ResolveReportSettings(patient *Patient, clinic *clinics.Clinic, fallbackTimezone string) (ReportSettings, error) {
	preset := clinic.Preset()
	timezone := clinic.TimezoneName()
	if patient != nil {
		if patient.GlycemicRangePreset != nil {
			preset = *patient.GlycemicRangePreset
		}
		if patient.Timezone != nil {
			timezone = *patient.Timezone
		}
	}

	bounds, err := glucose.BoundsForPreset(preset, clinic.BgUnits())
	if err != nil {
		return ReportSettings{}, err
	}
	loc, err := stats.ResolveLocation(timezone, fallbackTimezone)
	if err != nil {
		return ReportSettings{}, err
	}

	return ReportSettings{
		Bounds:   bounds,
		Location: loc,
	}, nil
}
