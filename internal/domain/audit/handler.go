package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/maternity/maternity/internal/platform/auth"
	"github.com/maternity/maternity/pkg/pagination"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/audit", h.List, auth.RequirePermission(auth.PermAuditRead))
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromRequest(c)
	f := Filter{
		Action:   Action(c.QueryParam("action")),
		Entity:   c.QueryParam("entity"),
		EntityID: c.QueryParam("entity_id"),
		Actor:    c.QueryParam("actor"),
	}

	items, total, err := h.repo.List(c.Request().Context(), f, page.Limit, page.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list audit entries")
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.Page{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}
