package clinics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"

	"github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/pointer"
	"github.com/tidepool-org/blip/stats"
	"github.com/tidepool-org/blip/store"
)

//go:generate mockgen --build_flags=--mod=mod -source=./clinics.go -destination=./test/mock_service.go -package test MockService

var ErrNotFound = fmt.Errorf("clinic %w", errors.NotFound)
var ErrInvalidSettings = fmt.Errorf("%w: clinic settings", errors.InvalidArgument)

var Module = fx.Provide(NewRepository)

const (
	DefaultBgUnits             = glucose.MgdL
	DefaultGlycemicRangePreset = glucose.PresetADAStandard
)

type Service interface {
	Get(ctx context.Context, id string) (*Clinic, error)
	List(ctx context.Context, filter *Filter, pagination store.Pagination) ([]*Clinic, error)
	Create(ctx context.Context, clinic *Clinic) (*Clinic, error)
	UpdateSettings(ctx context.Context, id string, settings *Settings) (*Clinic, error)
	AddClinician(ctx context.Context, id string, userId string) error
	Delete(ctx context.Context, id string) error
}

type Filter struct {
	Ids         []string
	ClinicianId *string
}

type Clinic struct {
	Id                  *primitive.ObjectID `bson:"_id,omitempty"`
	Name                *string             `bson:"name,omitempty"`
	Clinicians          []string            `bson:"clinicians"`
	PreferredBgUnits    glucose.Units       `bson:"preferredBgUnits"`
	GlycemicRangePreset glucose.Preset      `bson:"glycemicRangePreset"`
	Timezone            *string             `bson:"timezone,omitempty"`
	CreatedTime         time.Time           `bson:"createdTime,omitempty"`
	UpdatedTime         time.Time           `bson:"updatedTime,omitempty"`
}

// Settings are the clinic wide defaults used when a patient has no preference of their own
type Settings struct {
	PreferredBgUnits    *glucose.Units  `json:"preferredBgUnits,omitempty"`
	GlycemicRangePreset *glucose.Preset `json:"glycemicRangePreset,omitempty"`
	Timezone            *string         `json:"timezone,omitempty"`
}

func (s Settings) Validate() error {
	if s.PreferredBgUnits != nil {
		if err := s.PreferredBgUnits.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}
	if s.GlycemicRangePreset != nil {
		if err := s.GlycemicRangePreset.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}
	if s.Timezone != nil {
		if _, err := stats.LoadLocation(*s.Timezone); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}
	return nil
}

func (c *Clinic) Settings() Settings {
	return Settings{
		PreferredBgUnits:    pointer.FromAny(c.BgUnits()),
		GlycemicRangePreset: pointer.FromAny(c.Preset()),
		Timezone:            c.Timezone,
	}
}

func (c *Clinic) BgUnits() glucose.Units {
	if c.PreferredBgUnits == "" {
		return DefaultBgUnits
	}
	return c.PreferredBgUnits
}

func (c *Clinic) Preset() glucose.Preset {
	if c.GlycemicRangePreset == "" {
		return DefaultGlycemicRangePreset
	}
	return c.GlycemicRangePreset
}

// BgBounds returns the bounds of the clinic preset in the preferred units of the clinic
func (c *Clinic) BgBounds() (glucose.BgBounds, error) {
	return glucose.BoundsForPreset(c.Preset(), c.BgUnits())
}

func (c *Clinic) IsMember(userId string) bool {
	return slices.Contains(c.Clinicians, userId)
}

func (c *Clinic) TimezoneName() string {
	return pointer.ToString(c.Timezone)
}

func NewClinic(name string, creatorId string) *Clinic {
	return &Clinic{
		Name:                pointer.FromAny(name),
		Clinicians:          []string{creatorId},
		PreferredBgUnits:    DefaultBgUnits,
		GlycemicRangePreset: DefaultGlycemicRangePreset,
	}
}
