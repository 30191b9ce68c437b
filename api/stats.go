package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/patients"
	"github.com/tidepool-org/blip/stats"
)

func (h *Handler) GetClinicPatientStats(ec echo.Context) error {
	patient, settings, err := h.patientReportSettings(ec)
	if err != nil {
		return err
	}

	dto, err := h.periodStats(ec, *patient.UserId, settings)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, dto)
}

// GetUserStats reports the stats of a user outside of any clinic. Settings
// fall back to the configured defaults.
func (h *Handler) GetUserStats(ec echo.Context) error {
	units, err := glucose.ParseUnits(queryOrDefault(ec, "bgUnits", h.config.DefaultBgUnits))
	if err != nil {
		return err
	}
	preset := glucose.Preset(queryOrDefault(ec, "preset", h.config.DefaultGlycemicRangePreset))
	bounds, err := glucose.BoundsForPreset(preset, units)
	if err != nil {
		return err
	}
	loc, err := stats.ResolveLocation(ec.QueryParam("timezone"), h.config.DefaultTimezone)
	if err != nil {
		return err
	}

	dto, err := h.periodStats(ec, ec.Param("userId"), patients.ReportSettings{Bounds: bounds, Location: loc})
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, dto)
}

// periodStats computes the stats of the requested period and compares them
// with the period of equal length right before it
func (h *Handler) periodStats(ec echo.Context, userId string, settings patients.ReportSettings) (Stats, error) {
	days, err := queryDays(ec)
	if err != nil {
		return Stats{}, err
	}
	period, err := h.reportPeriod(ec.QueryParam("startDate"), ec.QueryParam("endDate"), days, settings.Location)
	if err != nil {
		return Stats{}, err
	}

	current, previous, err := h.computeWithOffset(ec.Request().Context(), userId, settings.Bounds, period)
	if err != nil {
		return Stats{}, err
	}
	return NewStatsDto(current, previous), nil
}

func (h *Handler) computeWithOffset(ctx context.Context, userId string, bounds glucose.BgBounds, period stats.Period) (*stats.Summary, *stats.Summary, error) {
	offset := period.Offset()
	readings, err := h.data.ListReadings(ctx, userId, offset.Start, period.End)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to fetch readings: %w", err)
	}

	current, err := stats.Compute(readings, bounds, period)
	if err != nil {
		return nil, nil, err
	}
	previous, err := stats.Compute(readings, bounds, offset)
	if err != nil {
		return nil, nil, err
	}

	h.logger.Debugw("computed stats", "userId", userId, "period", period.String(), "readings", len(readings))
	return current, previous, nil
}

func queryOrDefault(ec echo.Context, name string, def string) string {
	if value := ec.QueryParam(name); value != "" {
		return value
	}
	return def
}
