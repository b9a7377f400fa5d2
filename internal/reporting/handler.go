package reporting

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/maternity/maternity/internal/platform/auth"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(g *echo.Group) {
	view := auth.RequirePermission(auth.PermReportView)

	g.GET("/reports/rem", h.REM, view)
	g.GET("/reports/health-service", h.HealthService, view)
	g.GET("/reports/quality", h.Quality, view)
}

func (h *Handler) REM(c echo.Context) error {
	year, err := strconv.Atoi(c.QueryParam("year"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "year is required")
	}
	month, err := strconv.Atoi(c.QueryParam("month"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "month is required")
	}

	rep, err := h.svc.REM(c.Request().Context(), year, month)
	switch {
	case errors.Is(err, ErrBadPeriod):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build report")
	}

	switch c.QueryParam("format") {
	case "", "json":
		return c.JSON(http.StatusOK, rep)
	case "excel":
		var buf bytes.Buffer
		if err := WriteExcel(&buf, rep); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to render workbook")
		}
		return attachment(c, mimeXLSX, fmt.Sprintf("rem_%s.xlsx", rep.Period), buf.Bytes())
	case "pdf":
		var buf bytes.Buffer
		if err := WritePDF(&buf, rep); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to render document")
		}
		return attachment(c, mimePDF, fmt.Sprintf("rem_%s.pdf", rep.Period), buf.Bytes())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown format")
	}
}

func (h *Handler) HealthService(c echo.Context) error {
	year, err := strconv.Atoi(c.QueryParam("year"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "year is required")
	}
	quarter, err := strconv.Atoi(c.QueryParam("quarter"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "quarter is required")
	}

	rep, err := h.svc.HealthService(c.Request().Context(), year, quarter)
	switch {
	case errors.Is(err, ErrBadPeriod):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build report")
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) Quality(c echo.Context) error {
	rep, err := h.svc.Quality(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build report")
	}
	return c.JSON(http.StatusOK, rep)
}

func attachment(c echo.Context, contentType, filename string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, contentType, body)
}
