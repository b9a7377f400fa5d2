package catalog

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/maternity/maternity/internal/domain/audit"
	"github.com/maternity/maternity/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(g *echo.Group) {
	// Lookups are reference data and open to any authenticated caller.
	g.GET("/catalog/kinds", h.ListKinds)
	g.GET("/catalog/:kind", h.ListByKind)

	manage := auth.RequirePermission(auth.PermCatalogManage)
	g.POST("/catalog/:kind", h.Create, manage)
	g.PUT("/catalog/items/:id", h.Update, manage)
	g.POST("/catalog/items/:id/activate", h.Activate, manage)
	g.POST("/catalog/items/:id/deactivate", h.Deactivate, manage)
}

func (h *Handler) ListKinds(c echo.Context) error {
	return c.JSON(http.StatusOK, Kinds())
}

func (h *Handler) ListByKind(c echo.Context) error {
	kind := Kind(c.Param("kind"))
	activeOnly := c.QueryParam("all") != "true"

	items, err := h.svc.ListByKind(c.Request().Context(), kind, activeOnly)
	if err != nil {
		if errors.Is(err, ErrInvalidKind) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list catalog items")
	}
	if items == nil {
		items = []*Item{}
	}
	return c.JSON(http.StatusOK, items)
}

type createItemRequest struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	it := &Item{
		Kind:  Kind(c.Param("kind")),
		Value: req.Value,
		Order: req.Order,
	}
	err := h.svc.Create(c.Request().Context(), audit.FromEcho(c), it)
	switch {
	case errors.Is(err, ErrInvalidKind):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req createItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	it, err := h.svc.Update(c.Request().Context(), audit.FromEcho(c), id, req.Value, req.Order)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "catalog item not found")
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) Activate(c echo.Context) error   { return h.setActive(c, true) }
func (h *Handler) Deactivate(c echo.Context) error { return h.setActive(c, false) }

func (h *Handler) setActive(c echo.Context, active bool) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	it, err := h.svc.SetActive(c.Request().Context(), audit.FromEcho(c), id, active)
	if errors.Is(err, pgx.ErrNoRows) {
		return echo.NewHTTPError(http.StatusNotFound, "catalog item not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update catalog item")
	}
	return c.JSON(http.StatusOK, it)
}
