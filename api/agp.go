package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tidepool-org/blip/agp"
)

func (h *Handler) GenerateAGP(ec echo.Context) error {
	ctx := ec.Request().Context()
	dto := AGPRequest{}
	if err := ec.Bind(&dto); err != nil {
		return err
	}

	patient, settings, err := h.patientReportSettings(ec)
	if err != nil {
		return err
	}
	period, err := h.reportPeriod(dto.StartDate, dto.EndDate, dto.Days, settings.Location)
	if err != nil {
		return err
	}

	images := dto.Images
	if len(images) == 0 {
		images = agp.AllImageTypes
	}
	for _, image := range images {
		if err := image.Validate(); err != nil {
			return err
		}
	}

	report, err := h.agp.Generate(ctx, agp.Request{
		PatientId: *patient.UserId,
		Period:    period,
		Options: agp.Options{
			Bounds: settings.Bounds,
			Images: images,
		},
	})
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, NewAGPReportDto(report))
}
