package newborn

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

	g.POST("/newborns", h.Create, write)
	g.GET("/newborns", h.List, read)
	g.GET("/newborns/:id", h.Get, read)
	g.PUT("/newborns/:id", h.Update, write)
	g.POST("/newborns/:id/deactivate", h.Deactivate, del)
	g.POST("/newborns/:id/discharge", h.Discharge, write)

	g.GET("/newborns/:id/prophylaxis", h.ListProphylaxis, read)
	g.POST("/newborns/:id/prophylaxis", h.AddProphylaxis, write)

	g.GET("/newborns/:id/observations", h.ListObservations, read)
	g.POST("/newborns/:id/observations", h.AddObservation, sign)

	g.GET("/newborns/:id/deaths", h.ListDeathRecords, read)
	g.POST("/newborns/:id/deaths", h.RegisterDeath, del)
}

type newbornRequest struct {
	BirthID             uuid.UUID `json:"birth_id"`
	Sex                 string    `json:"sex"`
	WeightGrams         int       `json:"weight_grams"`
	LengthCM            float64   `json:"length_cm"`
	HeadCircumferenceCM float64   `json:"head_circumference_cm"`
	Apgar1              *int      `json:"apgar1"`
	Apgar5              *int      `json:"apgar5"`
	BasicResuscitation  bool      `json:"basic_resuscitation"`
	AdvancedResus       bool      `json:"advanced_resuscitation"`
	DelayedCordClamping bool      `json:"delayed_cord_clamping"`
	BreastfedWithin60   bool      `json:"breastfed_within_60min"`
}

func (r *newbornRequest) toModel() *Newborn {
	return &Newborn{
		BirthID:             r.BirthID,
		Sex:                 r.Sex,
		WeightGrams:         r.WeightGrams,
		LengthCM:            r.LengthCM,
		HeadCircumferenceCM: r.HeadCircumferenceCM,
		Apgar1:              r.Apgar1,
		Apgar5:              r.Apgar5,
		BasicResuscitation:  r.BasicResuscitation,
		AdvancedResus:       r.AdvancedResus,
		DelayedCordClamping: r.DelayedCordClamping,
		BreastfedWithin60:   r.BreastfedWithin60,
	}
}

func (h *Handler) Create(c echo.Context) error {
	var req newbornRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n := req.toModel()
	err := h.svc.Create(c.Request().Context(), audit.FromEcho(c), n)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "birth not found")
	case errors.Is(err, ErrBirthInactive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	n, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "newborn not found")
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromRequest(c)
	f := Filter{
		PendingDischarge: c.QueryParam("pending_discharge") == "true",
		IncludeInactive:  c.QueryParam("all") == "true",
	}
	for name, dst := range map[string]**uuid.UUID{"birth_id": &f.BirthID, "mother_id": &f.MotherID} {
		if raw := c.QueryParam(name); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
			}
			*dst = &id
		}
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list newborns")
	}
	if items == nil {
		items = []*Newborn{}
	}
	return c.JSON(http.StatusOK, pagination.Page{Items: items, Total: total, Limit: pg.Limit, Offset: pg.Offset})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req newbornRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n, err := h.svc.Update(c.Request().Context(), audit.FromEcho(c), id, req.toModel())
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "newborn not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, n)
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
		return echo.NewHTTPError(http.StatusNotFound, "newborn not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	n, err := h.svc.Discharge(c.Request().Context(), audit.FromEcho(c), id)
	var notReady *NotDischargeableError
	switch {
	case errors.As(err, &notReady):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"message": notReady.Error(),
			"missing": notReady.Missing,
		})
	case errors.Is(err, ErrAlreadyDischarged):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "newborn not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, n)
}

type prophylaxisRequest struct {
	KindID          uuid.UUID `json:"kind_id"`
	AdministeredAt  time.Time `json:"administered_at"`
	Professional    string    `json:"professional"`
	AdverseReaction *string   `json:"adverse_reaction"`
}

func (h *Handler) AddProphylaxis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req prophylaxisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := &Prophylaxis{
		NewbornID:       id,
		KindID:          req.KindID,
		AdministeredAt:  req.AdministeredAt,
		Professional:    req.Professional,
		AdverseReaction: req.AdverseReaction,
	}

	err = h.svc.AddProphylaxis(c.Request().Context(), audit.FromEcho(c), p)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "newborn not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListProphylaxis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListProphylaxis(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list prophylaxis")
	}
	if items == nil {
		items = []*Prophylaxis{}
	}
	return c.JSON(http.StatusOK, items)
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
		return echo.NewHTTPError(http.StatusNotFound, "newborn not found")
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
		return echo.NewHTTPError(http.StatusNotFound, "newborn not found")
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
