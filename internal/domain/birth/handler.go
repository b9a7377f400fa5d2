package birth

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

	g.POST("/births", h.Create, write)
	g.GET("/births", h.List, read)
	g.GET("/births/:id", h.Get, read)
	g.PUT("/births/:id", h.Update, write)
	g.POST("/births/:id/deactivate", h.Deactivate, del)

	g.GET("/births/:id/attention", h.GetAttention, read)
	g.PUT("/births/:id/attention", h.UpsertAttention, write)

	g.GET("/births/:id/robson", h.GetRobson, read)
	g.PUT("/births/:id/robson", h.UpsertRobson, write)

	g.GET("/births/:id/observations", h.ListObservations, read)
	g.POST("/births/:id/observations", h.AddObservation, sign)
}

type birthRequest struct {
	MotherID            uuid.UUID `json:"mother_id"`
	Date                time.Time `json:"date"`
	Time                string    `json:"time"`
	DeliveryTypeID      uuid.UUID `json:"delivery_type_id"`
	GestationalAgeWeeks int       `json:"gestational_age_weeks"`
	FacilityID          uuid.UUID `json:"facility_id"`
	CompanionLabor      bool      `json:"companion_labor"`
	CompanionExpulsive  bool      `json:"companion_expulsive"`
	SkinToSkinMother    bool      `json:"skin_to_skin_mother"`
	SkinToSkinCompanion bool      `json:"skin_to_skin_companion"`
	Twins               bool      `json:"twins"`
}

func (r *birthRequest) toModel() *Birth {
	return &Birth{
		MotherID:            r.MotherID,
		Date:                r.Date,
		Time:                r.Time,
		DeliveryTypeID:      r.DeliveryTypeID,
		GestationalAgeWeeks: r.GestationalAgeWeeks,
		FacilityID:          r.FacilityID,
		CompanionLabor:      r.CompanionLabor,
		CompanionExpulsive:  r.CompanionExpulsive,
		SkinToSkinMother:    r.SkinToSkinMother,
		SkinToSkinCompanion: r.SkinToSkinCompanion,
		Twins:               r.Twins,
	}
}

func (h *Handler) Create(c echo.Context) error {
	var req birthRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b := req.toModel()
	err := h.svc.Create(c.Request().Context(), audit.FromEcho(c), b)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "mother not found")
	case errors.Is(err, ErrMotherInactive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "birth not found")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromRequest(c)
	f := Filter{IncludeInactive: c.QueryParam("all") == "true"}

	if raw := c.QueryParam("mother_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid mother_id")
		}
		f.MotherID = &id
	}
	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if raw := c.QueryParam(name); raw != "" {
			ts, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" date")
			}
			*dst = &ts
		}
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list births")
	}
	if items == nil {
		items = []*Birth{}
	}
	return c.JSON(http.StatusOK, pagination.Page{Items: items, Total: total, Limit: pg.Limit, Offset: pg.Offset})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req birthRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.Update(c.Request().Context(), audit.FromEcho(c), id, req.toModel())
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "birth not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, b)
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
	switch {
	case errors.Is(err, auth.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "birth not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetAttention(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAttention(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "attention model not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpsertAttention(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a AttentionModel
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.BirthID = id

	err = h.svc.UpsertAttention(c.Request().Context(), audit.FromEcho(c), &a)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "birth not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GetRobson(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rb, err := h.svc.GetRobson(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "robson classification not found")
	}
	return c.JSON(http.StatusOK, rb)
}

func (h *Handler) UpsertRobson(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var rb Robson
	if err := c.Bind(&rb); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rb.BirthID = id

	err = h.svc.UpsertRobson(c.Request().Context(), audit.FromEcho(c), &rb)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "birth not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rb)
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
		return echo.NewHTTPError(http.StatusNotFound, "birth not found")
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
