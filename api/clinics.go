package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tidepool-org/blip/auth"
	"github.com/tidepool-org/blip/clinics"
)

func (h *Handler) CreateClinic(ec echo.Context) error {
	ctx := ec.Request().Context()
	dto := Clinic{}
	if err := ec.Bind(&dto); err != nil {
		return err
	}

	authData := auth.GetAuthData(ctx)
	if authData == nil || authData.SubjectId == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "expected authenticated user id",
		}
	}

	result, err := h.clinics.Create(ctx, NewClinic(dto, authData.SubjectId))
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, NewClinicDto(result))
}

func (h *Handler) GetClinic(ec echo.Context) error {
	ctx := ec.Request().Context()
	clinic, err := h.clinics.Get(ctx, ec.Param("clinicId"))
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, NewClinicDto(clinic))
}

func (h *Handler) UpdateClinicSettings(ec echo.Context) error {
	ctx := ec.Request().Context()
	settings := clinics.Settings{}
	if err := ec.Bind(&settings); err != nil {
		return err
	}

	clinic, err := h.clinics.UpdateSettings(ctx, ec.Param("clinicId"), &settings)
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, NewClinicDto(clinic))
}
