package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) GetSummary(ec echo.Context) error {
	ctx := ec.Request().Context()
	_, patient, err := h.clinicPatient(ec)
	if err != nil {
		return err
	}

	result, err := h.summaries.Get(ctx, *patient.UserId)
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, result)
}

func (h *Handler) RefreshSummary(ec echo.Context) error {
	ctx := ec.Request().Context()
	patient, settings, err := h.patientReportSettings(ec)
	if err != nil {
		return err
	}

	result, err := h.summaries.Refresh(ctx, *patient.UserId, settings.Bounds, settings.Location)
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, result)
}
