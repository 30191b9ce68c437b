package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tidepool-org/blip/auth"
	"github.com/tidepool-org/blip/clinics"
	"github.com/tidepool-org/blip/patients"
	"github.com/tidepool-org/blip/pointer"
)

func (h *Handler) CreatePatient(ec echo.Context) error {
	ctx := ec.Request().Context()
	dto := Patient{}
	if err := ec.Bind(&dto); err != nil {
		return err
	}

	clinic, err := h.clinics.Get(ctx, ec.Param("clinicId"))
	if err != nil {
		return err
	}

	result, err := h.patients.Create(ctx, NewPatient(dto, clinic))
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, NewPatientDto(result))
}

func (h *Handler) ListPatients(ec echo.Context) error {
	ctx := ec.Request().Context()
	page, err := pagination(ec)
	if err != nil {
		return err
	}

	filter := patients.Filter{
		ClinicId: pointer.FromAny(ec.Param("clinicId")),
	}
	if search := strings.TrimSpace(ec.QueryParam("search")); search != "" {
		filter.Search = pointer.FromAny(search)
	}

	list, err := h.patients.List(ctx, &filter, page)
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, NewPatientsDto(list))
}

func (h *Handler) DeletePatient(ec echo.Context) error {
	ctx := ec.Request().Context()
	var deletedByUserId *string
	if authData := auth.GetAuthData(ctx); authData != nil && authData.SubjectId != "" {
		deletedByUserId = pointer.FromAny(authData.SubjectId)
	}

	if err := h.patients.Remove(ctx, ec.Param("clinicId"), ec.Param("patientId"), deletedByUserId); err != nil {
		return err
	}

	return ec.NoContent(http.StatusNoContent)
}

// clinicPatient loads the patient of the route together with its clinic
func (h *Handler) clinicPatient(ec echo.Context) (*clinics.Clinic, *patients.Patient, error) {
	ctx := ec.Request().Context()
	clinic, err := h.clinics.Get(ctx, ec.Param("clinicId"))
	if err != nil {
		return nil, nil, err
	}
	patient, err := h.patients.Get(ctx, ec.Param("clinicId"), ec.Param("patientId"))
	if err != nil {
		return nil, nil, err
	}
	return clinic, patient, nil
}

func (h *Handler) patientReportSettings(ec echo.Context) (*patients.Patient, patients.ReportSettings, error) {
	clinic, patient, err := h.clinicPatient(ec)
	if err != nil {
		return nil, patients.ReportSettings{}, err
	}
	settings, err := patients.ResolveReportSettings(patient, clinic, h.config.DefaultTimezone)
	if err != nil {
		return nil, patients.ReportSettings{}, err
	}
	return patient, settings, nil
}
