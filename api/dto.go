package api

import (
	"time"

	"github.com/tidepool-org/blip/agp"
	"github.com/tidepool-org/blip/clinics"
	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/patients"
	"github.com/tidepool-org/blip/pointer"
	"github.com/tidepool-org/blip/stats"
)

type Clinic struct {
	Id                  string         `json:"id,omitempty"`
	Name                string         `json:"name"`
	Clinicians          []string       `json:"clinicians,omitempty"`
	PreferredBgUnits    glucose.Units  `json:"preferredBgUnits,omitempty"`
	GlycemicRangePreset glucose.Preset `json:"glycemicRangePreset,omitempty"`
	Timezone            string         `json:"timezone,omitempty"`
	CreatedTime         *time.Time     `json:"createdTime,omitempty"`
	UpdatedTime         *time.Time     `json:"updatedTime,omitempty"`
}

func NewClinic(dto Clinic, creatorId string) *clinics.Clinic {
	clinic := clinics.NewClinic(dto.Name, creatorId)
	if dto.PreferredBgUnits != "" {
		clinic.PreferredBgUnits = dto.PreferredBgUnits
	}
	if dto.GlycemicRangePreset != "" {
		clinic.GlycemicRangePreset = dto.GlycemicRangePreset
	}
	if dto.Timezone != "" {
		clinic.Timezone = pointer.FromAny(dto.Timezone)
	}
	return clinic
}

func NewClinicDto(c *clinics.Clinic) Clinic {
	dto := Clinic{
		Name:                pointer.ToString(c.Name),
		Clinicians:          c.Clinicians,
		PreferredBgUnits:    c.BgUnits(),
		GlycemicRangePreset: c.Preset(),
		Timezone:            c.TimezoneName(),
	}
	if c.Id != nil {
		dto.Id = c.Id.Hex()
	}
	if !c.CreatedTime.IsZero() {
		dto.CreatedTime = pointer.FromAny(c.CreatedTime)
	}
	if !c.UpdatedTime.IsZero() {
		dto.UpdatedTime = pointer.FromAny(c.UpdatedTime)
	}
	return dto
}

type Patient struct {
	Id                  string          `json:"id"`
	ClinicId            string          `json:"clinicId,omitempty"`
	FullName            string          `json:"fullName"`
	BirthDate           string          `json:"birthDate,omitempty"`
	Mrn                 string          `json:"mrn,omitempty"`
	Timezone            *string         `json:"timezone,omitempty"`
	GlycemicRangePreset *glucose.Preset `json:"glycemicRangePreset,omitempty"`
	CreatedTime         *time.Time      `json:"createdTime,omitempty"`
}

func NewPatient(dto Patient, clinic *clinics.Clinic) patients.Patient {
	patient := patients.Patient{
		ClinicId:            clinic.Id,
		UserId:              pointer.FromAny(dto.Id),
		FullName:            pointer.FromAny(dto.FullName),
		Timezone:            dto.Timezone,
		GlycemicRangePreset: dto.GlycemicRangePreset,
	}
	if dto.BirthDate != "" {
		patient.BirthDate = pointer.FromAny(dto.BirthDate)
	}
	if dto.Mrn != "" {
		patient.Mrn = pointer.FromAny(dto.Mrn)
	}
	return patient
}

func NewPatientDto(p *patients.Patient) Patient {
	dto := Patient{
		Id:                  pointer.ToString(p.UserId),
		FullName:            pointer.ToString(p.FullName),
		BirthDate:           pointer.ToString(p.BirthDate),
		Mrn:                 pointer.ToString(p.Mrn),
		Timezone:            p.Timezone,
		GlycemicRangePreset: p.GlycemicRangePreset,
	}
	if p.ClinicId != nil {
		dto.ClinicId = p.ClinicId.Hex()
	}
	if !p.CreatedTime.IsZero() {
		dto.CreatedTime = pointer.FromAny(p.CreatedTime)
	}
	return dto
}

func NewPatientsDto(list []*patients.Patient) []Patient {
	dtos := make([]Patient, 0, len(list))
	for _, p := range list {
		dtos = append(dtos, NewPatientDto(p))
	}
	return dtos
}

type Period struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Timezone string    `json:"timezone"`
}

func NewPeriodDto(p stats.Period) Period {
	return Period{
		Start:    p.Start,
		End:      p.End,
		Timezone: p.Location.String(),
	}
}

type BandStats struct {
	Band    glucose.Band `json:"band"`
	Label   string       `json:"label"`
	Count   int          `json:"count"`
	Percent *float64     `json:"percent,omitempty"`
}

// Stats are rounded for display. Glucose values use the precision of the units.
type Stats struct {
	Period                        Period              `json:"period"`
	Bounds                        glucose.BgBounds    `json:"bounds"`
	TimeInRange                   []BandStats         `json:"timeInRange"`
	AverageGlucose                *float64            `json:"averageGlucose,omitempty"`
	StandardDeviation             *float64            `json:"standardDeviation,omitempty"`
	CoefficientOfVariation        *float64            `json:"coefficientOfVariation,omitempty"`
	CoefficientOfVariationClass   glucose.CvClass     `json:"coefficientOfVariationClass,omitempty"`
	GlucoseManagementIndicator    *float64            `json:"glucoseManagementIndicator,omitempty"`
	AGPGlucoseManagementIndicator *float64            `json:"agpGlucoseManagementIndicator,omitempty"`
	SensorUsage                   *float64            `json:"sensorUsage,omitempty"`
	DaysWorn                      int                 `json:"daysWorn"`
	TotalReadings                 int                 `json:"totalReadings"`
	InsufficientData              bool                `json:"insufficientData"`
	Delta                         *stats.DeltaSummary `json:"delta,omitempty"`
}

func NewStatsDto(current *stats.Summary, previous *stats.Summary) Stats {
	units := current.Bounds.Units
	dto := Stats{
		Period:                        NewPeriodDto(current.Period),
		Bounds:                        current.Bounds,
		TimeInRange:                   make([]BandStats, 0, len(glucose.Bands)),
		AverageGlucose:                roundPtr(current.AverageGlucose, units.Precision()),
		StandardDeviation:             roundPtr(current.StandardDeviation, units.Precision()),
		CoefficientOfVariation:        roundPtr(current.CoefficientOfVariation, 1),
		CoefficientOfVariationClass:   current.CoefficientOfVariationClass,
		GlucoseManagementIndicator:    roundPtr(current.GlucoseManagementIndicator, 1),
		AGPGlucoseManagementIndicator: roundPtr(current.AGPGlucoseManagementIndicator, 1),
		SensorUsage:                   roundPtr(current.SensorUsage, 0),
		DaysWorn:                      current.DaysWorn,
		TotalReadings:                 current.TotalReadings,
		InsufficientData:              current.InsufficientData,
	}

	for _, band := range glucose.Bands {
		dto.TimeInRange = append(dto.TimeInRange, BandStats{
			Band:    band,
			Label:   band.Label(),
			Count:   current.TimeInRange.Count(band),
			Percent: current.TimeInRange.Percent(band),
		})
	}

	if previous != nil {
		delta := stats.CompareSummaries(current, previous)
		dto.Delta = &delta
	}

	return dto
}

type AGPRequest struct {
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Days      int             `json:"days"`
	Images    []agp.ImageType `json:"images"`
}

type AGPReport struct {
	Id          string                      `json:"id"`
	PatientId   string                      `json:"patientId"`
	State       agp.State                   `json:"state"`
	Stats       Stats                       `json:"stats"`
	Percentiles []stats.PercentileBin       `json:"percentiles"`
	Daily       []agp.DailyProfile          `json:"daily"`
	Images      map[agp.ImageType]agp.Image `json:"images"`
	CreatedTime time.Time                   `json:"createdTime"`
}

func NewAGPReportDto(r *agp.Report) AGPReport {
	dto := AGPReport{
		Id:          r.Id,
		PatientId:   r.PatientId,
		State:       r.State,
		Percentiles: r.Percentiles,
		Daily:       r.Daily,
		Images:      r.Images,
		CreatedTime: r.CreatedTime,
	}
	if r.Summary != nil {
		dto.Stats = NewStatsDto(r.Summary, nil)
	}
	return dto
}

func roundPtr(value *float64, places int32) *float64 {
	if value == nil {
		return nil
	}
	return pointer.FromAny(glucose.Round(*value, places))
}
