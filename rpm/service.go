package rpm

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/blip/clinics"
	"github.com/tidepool-org/blip/config"
	"github.com/tidepool-org/blip/data"
	"github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/patients"
	"github.com/tidepool-org/blip/pointer"
	"github.com/tidepool-org/blip/stats"
	"github.com/tidepool-org/blip/store"
)

const (
	MaxReportDays = 92

	patientsPageSize = 100
)

var ErrInvalidReportPeriod = fmt.Errorf("%w: rpm report period", errors.BadRequest)

var Module = fx.Provide(NewService)

type Service struct {
	clinics  clinics.Service
	patients patients.Service
	client   data.Client
	config   *config.Config
	logger   *zap.SugaredLogger
}

type Params struct {
	fx.In

	Clinics  clinics.Service
	Patients patients.Service
	Client   data.Client
	Config   *config.Config
	Logger   *zap.SugaredLogger
}

func NewService(p Params) *Service {
	return &Service{
		clinics:  p.Clinics,
		patients: p.Patients,
		client:   p.Client,
		config:   p.Config,
		logger:   p.Logger,
	}
}

// Generate builds the report of every patient of the clinic for the local
// dates startDate through endDate, both inclusive
func (s *Service) Generate(ctx context.Context, clinicId string, startDate string, endDate string) (*Report, error) {
	clinic, err := s.clinics.Get(ctx, clinicId)
	if err != nil {
		return nil, err
	}

	clinicSettings, err := patients.ResolveReportSettings(nil, clinic, s.config.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	period, err := reportPeriod(startDate, endDate, clinicSettings)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Period: period,
		Rows:   make([]Row, 0),
	}

	pagination := store.Pagination{Limit: patientsPageSize}
	filter := &patients.Filter{ClinicId: pointer.FromAny(clinicId)}
	for {
		page, err := s.patients.List(ctx, filter, pagination)
		if err != nil {
			return nil, err
		}

		for _, patient := range page {
			row, err := s.patientRow(ctx, patient, clinic, startDate, endDate)
			if err != nil {
				return nil, err
			}
			report.Rows = append(report.Rows, row)
		}

		if len(page) < pagination.Limit {
			break
		}
		pagination.Offset += pagination.Limit
	}

	s.logger.Infow("generated rpm report", "clinicId", clinicId, "period", period.String(), "patients", len(report.Rows))
	return report, nil
}

// patientRow counts qualifying days in the local timezone of the patient
func (s *Service) patientRow(ctx context.Context, patient *patients.Patient, clinic *clinics.Clinic, startDate string, endDate string) (Row, error) {
	settings, err := patients.ResolveReportSettings(patient, clinic, s.config.DefaultTimezone)
	if err != nil {
		return Row{}, err
	}
	period, err := reportPeriod(startDate, endDate, settings)
	if err != nil {
		return Row{}, err
	}

	userId := pointer.ToString(patient.UserId)
	readings, err := s.client.ListReadings(ctx, userId, period.Start, period.End)
	if err != nil {
		return Row{}, fmt.Errorf("unable to fetch readings of patient %s: %w", userId, err)
	}

	return NewRow(patient, readings, period), nil
}

func reportPeriod(startDate string, endDate string, settings patients.ReportSettings) (stats.Period, error) {
	period, err := stats.DatePeriod(startDate, endDate, settings.Location)
	if err != nil {
		return stats.Period{}, fmt.Errorf("%w: %w", ErrInvalidReportPeriod, err)
	}
	if days := len(period.LocalDays()); days > MaxReportDays {
		return stats.Period{}, fmt.Errorf("%w: %d days exceeds the maximum of %d", ErrInvalidReportPeriod, days, MaxReportDays)
	}
	return period, nil
}
