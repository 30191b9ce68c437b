package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/blip/agp"
	"github.com/tidepool-org/blip/clinics"
	"github.com/tidepool-org/blip/config"
	"github.com/tidepool-org/blip/data"
	"github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/patients"
	"github.com/tidepool-org/blip/rpm"
	"github.com/tidepool-org/blip/stats"
	"github.com/tidepool-org/blip/store"
	"github.com/tidepool-org/blip/summary"
)

const (
	DefaultStatsDays = 14
	MaxStatsDays     = 90
)

var ErrInvalidQuery = fmt.Errorf("%w: query parameter", errors.BadRequest)

type Handler struct {
	config    *config.Config
	clinics   clinics.Service
	patients  patients.Service
	summaries summary.Service
	data      data.Client
	agp       *agp.Generator
	rpm       *rpm.Service
	logger    *zap.SugaredLogger
	now       func() time.Time
}

type Params struct {
	fx.In

	Config    *config.Config
	Clinics   clinics.Service
	Patients  patients.Service
	Summaries summary.Service
	Data      data.Client
	AGP       *agp.Generator
	RPM       *rpm.Service
	Logger    *zap.SugaredLogger
}

func NewHandler(p Params) *Handler {
	return &Handler{
		config:    p.Config,
		clinics:   p.Clinics,
		patients:  p.Patients,
		summaries: p.Summaries,
		data:      p.Data,
		agp:       p.AGP,
		rpm:       p.RPM,
		logger:    p.Logger,
		now:       time.Now,
	}
}

func RegisterHandlers(e *echo.Echo, h *Handler) {
	v1 := e.Group("/v1")

	v1.POST("/clinics", h.CreateClinic)
	v1.GET("/clinics/:clinicId", h.GetClinic)
	v1.PUT("/clinics/:clinicId/settings", h.UpdateClinicSettings)

	v1.POST("/clinics/:clinicId/patients", h.CreatePatient)
	v1.GET("/clinics/:clinicId/patients", h.ListPatients)
	v1.DELETE("/clinics/:clinicId/patients/:patientId", h.DeletePatient)
	v1.GET("/clinics/:clinicId/patients/:patientId/stats", h.GetClinicPatientStats)
	v1.POST("/clinics/:clinicId/patients/:patientId/agp", h.GenerateAGP)
	v1.GET("/clinics/:clinicId/patients/:patientId/summary", h.GetSummary)
	v1.POST("/clinics/:clinicId/patients/:patientId/summary", h.RefreshSummary)

	v1.GET("/clinics/:clinicId/rpm_report", h.GetRPMReport)

	v1.GET("/patients/:userId/stats", h.GetUserStats)
}

func pagination(ec echo.Context) (store.Pagination, error) {
	page := store.DefaultPagination()
	if offset := ec.QueryParam("offset"); offset != "" {
		value, err := strconv.Atoi(offset)
		if err != nil || value < 0 {
			return page, fmt.Errorf("%w: offset %q", ErrInvalidQuery, offset)
		}
		page.Offset = value
	}
	if limit := ec.QueryParam("limit"); limit != "" {
		value, err := strconv.Atoi(limit)
		if err != nil || value <= 0 {
			return page, fmt.Errorf("%w: limit %q", ErrInvalidQuery, limit)
		}
		page.Limit = value
	}
	return page, nil
}

// reportPeriod resolves either an explicit local date range or a number of
// whole days ending after today
func (h *Handler) reportPeriod(startDate, endDate string, days int, loc *time.Location) (stats.Period, error) {
	if startDate != "" || endDate != "" {
		if startDate == "" || endDate == "" {
			return stats.Period{}, fmt.Errorf("%w: both startDate and endDate are required", ErrInvalidQuery)
		}
		period, err := stats.DatePeriod(startDate, endDate, loc)
		if err != nil {
			return stats.Period{}, err
		}
		if days := len(period.LocalDays()); days > MaxStatsDays {
			return stats.Period{}, fmt.Errorf("%w: %d days exceeds the maximum of %d", ErrInvalidQuery, days, MaxStatsDays)
		}
		return period, nil
	}

	if days == 0 {
		days = DefaultStatsDays
	}
	if days < 0 || days > MaxStatsDays {
		return stats.Period{}, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidQuery, MaxStatsDays)
	}
	return stats.PeriodOfDays(h.now(), days, loc)
}

func queryDays(ec echo.Context) (int, error) {
	param := ec.QueryParam("days")
	if param == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(param)
	if err != nil {
		return 0, fmt.Errorf("%w: days %q", ErrInvalidQuery, param)
	}
	return days, nil
}
