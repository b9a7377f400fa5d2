package mother

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/maternity/maternity/internal/domain/audit"
	"github.com/maternity/maternity/internal/platform/auth"
	"github.com/maternity/maternity/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(g *echo.Group) {
	read := auth.RequirePermission(auth.PermRecordRead)
	write := auth.RequirePermission(auth.PermRecordWrite)
	del := auth.RequirePermission(auth.PermRecordDelete)
	sign := auth.RequirePermission(auth.PermObservationSign)

	g.POST("/mothers", h.Create, write)
	g.GET("/mothers", h.List, read)
	g.GET("/mothers/:id", h.Get, read)
	g.PUT("/mothers/:id", h.Update, write)
	g.POST("/mothers/:id/deactivate", h.Deactivate, del)

	g.GET("/mothers/:id/screening", h.GetScreening, read)
	g.PUT("/mothers/:id/screening", h.UpsertScreening, write)

	g.GET("/mothers/:id/observations", h.ListObservations, read)
	g.POST("/mothers/:id/observations", h.AddObservation, sign)

	g.GET("/mothers/:id/deaths", h.ListDeathRecords, read)
	g.POST("/mothers/:id/deaths", h.RegisterDeath, del)
}

type motherRequest struct {
	RUT        string    `json:"rut"`
	FullName   string    `json:"full_name"`
	BirthDate  time.Time `json:"birth_date"`
	ComunaID   uuid.UUID `json:"comuna_id"`
	FacilityID uuid.UUID `json:"facility_id"`
	Migrant    bool      `json:"migrant"`
	Indigenous bool      `json:"indigenous"`
	Disability bool      `json:"disability"`
}

func (r *motherRequest) toModel() *Mother {
	return &Mother{
		RUT:        r.RUT,
		FullName:   r.FullName,
		BirthDate:  r.BirthDate,
		ComunaID:   r.ComunaID,
		FacilityID: r.FacilityID,
		Migrant:    r.Migrant,
		Indigenous: r.Indigenous,
		Disability: r.Disability,
	}
}

func (h *Handler) Create(c echo.Context) error {
	var req motherRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m := req.toModel()
	err := h.svc.Create(c.Request().Context(), audit.FromEcho(c), m)
	switch {
	case errors.Is(err, ErrDuplicateRUT):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "mother not found")
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromRequest(c)
	f := Filter{
		RUT:             c.QueryParam("rut"),
		Name:            c.QueryParam("name"),
		IncludeInactive: c.QueryParam("all") == "true",
	}
	if raw := c.QueryParam("comuna_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid comuna_id")
		}
		f.ComunaID = &id
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list mothers")
	}
	if items == nil {
		items = []*Mother{}
	}
	return c.JSON(http.StatusOK, pagination.Page{Items: items, Total: total, Limit: pg.Limit, Offset: pg.Offset})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req motherRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.Update(c.Request().Context(), audit.FromEcho(c), id, req.toModel())
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "mother not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

type signedRequest struct {
	Reason   string `json:"reason"`
	Password string `json:"password"`
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req signedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err = h.svc.Deactivate(c.Request().Context(), audit.FromEcho(c), id, req.Reason, req.Password)
	var blocked *ActiveBirthsError
	switch {
	case errors.As(err, &blocked):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"message":   blocked.Error(),
			"birth_ids": blocked.BirthIDs,
		})
	case errors.Is(err, auth.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "mother not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetScreening(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	scr, err := h.svc.GetScreening(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "screening not found")
	}
	return c.JSON(http.StatusOK, scr)
}

func (h *Handler) UpsertScreening(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var scr Screening
	if err := c.Bind(&scr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	scr.MotherID = id

	err = h.svc.UpsertScreening(c.Request().Context(), audit.FromEcho(c), &scr)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "mother not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, scr)
}

type observationRequest struct {
	Text     string `json:"text"`
	Password string `json:"password"`
}

func (h *Handler) AddObservation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req observationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	o, err := h.svc.AddObservation(c.Request().Context(), audit.FromEcho(c), id, req.Text, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "mother not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListObservations(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListObservations(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list observations")
	}
	if items == nil {
		items = []*Observation{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RegisterDeath(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req signedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	d, err := h.svc.RegisterDeath(c.Request().Context(), audit.FromEcho(c), id, req.Reason, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "mother not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDeathRecords(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListDeathRecords(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list death records")
	}
	if items == nil {
		items = []*DeathRecord{}
	}
	return c.JSON(http.StatusOK, items)
}
