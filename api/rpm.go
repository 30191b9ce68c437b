package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tidepool-org/blip/rpm"
)

func (h *Handler) GetRPMReport(ec echo.Context) error {
	ctx := ec.Request().Context()
	format := rpm.Format(queryOrDefault(ec, "format", string(rpm.FormatCSV)))
	if format != rpm.FormatCSV && format != rpm.FormatXLSX {
		return fmt.Errorf("%w: format %q", ErrInvalidQuery, format)
	}

	report, err := h.rpm.Generate(ctx, ec.Param("clinicId"), ec.QueryParam("startDate"), ec.QueryParam("endDate"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format); err != nil {
		return err
	}

	ec.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", report.Filename(format)))
	return ec.Blob(http.StatusOK, format.MimeType(), buf.Bytes())
}
