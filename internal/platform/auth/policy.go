package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Roles carried by accounts. One role per account.
const (
	RoleFacilityIT = "ti_informatica"
	RoleClinician  = "profesional_salud"
	RoleTechnician = "tecnico_salud"
	RoleClerk      = "administrativo"
)

// Permission names one kind of operation the API exposes.
type Permission string

const (
	PermCatalogManage   Permission = "catalog:manage"
	PermRecordRead      Permission = "record:read"
	PermRecordWrite     Permission = "record:write"
	PermRecordDelete    Permission = "record:delete"
	PermObservationSign Permission = "observation:sign"
	PermReportView      Permission = "report:view"
	PermAuditRead       Permission = "audit:read"
	PermUserManage      Permission = "user:manage"
)

// policy is the single source of truth for which roles may perform which
// operation. Superusers and the facility IT role bypass it entirely inside
// Allowed, so it only lists the clinical and administrative roles.
var policy = map[Permission][]string{
	PermCatalogManage:   {},
	PermRecordRead:      {RoleClinician, RoleTechnician, RoleClerk},
	PermRecordWrite:     {RoleClinician, RoleTechnician},
	PermRecordDelete:    {RoleClinician},
	PermObservationSign: {RoleClinician, RoleTechnician},
	PermReportView:      {RoleClinician},
	PermAuditRead:       {},
	PermUserManage:      {},
}

// Allowed reports whether a caller with the given role may perform perm.
// The superuser flag and the facility IT role bypass every allow-list.
func Allowed(role string, superuser bool, perm Permission) bool {
	if superuser || role == RoleFacilityIT {
		return true
	}
	for _, allowed := range policy[perm] {
		if role == allowed {
			return true
		}
	}
	return false
}

// RequirePermission returns middleware that gates a route group on the
// policy table. Unauthenticated callers get 401, denied callers 403.
func RequirePermission(perm Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if UserIDFromContext(ctx) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !Allowed(RoleFromContext(ctx), IsSuperuser(ctx), perm) {
				return echo.NewHTTPError(http.StatusForbidden, "no tienes permisos para acceder a esta sección")
			}
			return next(c)
		}
	}
}

// ValidRole reports whether s is one of the known account roles.
func ValidRole(s string) bool {
	switch s {
	case RoleFacilityIT, RoleClinician, RoleTechnician, RoleClerk:
		return true
	}
	return false
}
