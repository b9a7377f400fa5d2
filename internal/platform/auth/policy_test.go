package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAllowed_PolicyTable(t *testing.T) {
	cases := []struct {
		role string
		perm Permission
		want bool
	}{
		{RoleClinician, PermRecordWrite, true},
		{RoleTechnician, PermRecordWrite, true},
		{RoleClerk, PermRecordWrite, false},
		{RoleClerk, PermRecordRead, true},
		{RoleTechnician, PermRecordDelete, false},
		{RoleClinician, PermRecordDelete, true},
		{RoleClinician, PermReportView, true},
		{RoleTechnician, PermReportView, false},
		{RoleClinician, PermAuditRead, false},
		{RoleClinician, PermUserManage, false},
		{RoleClerk, PermCatalogManage, false},
	}
	for _, tc := range cases {
		if got := Allowed(tc.role, false, tc.perm); got != tc.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestAllowed_FacilityITBypassesEverything(t *testing.T) {
	for _, perm := range []Permission{
		PermCatalogManage, PermRecordRead, PermRecordWrite, PermRecordDelete,
		PermObservationSign, PermReportView, PermAuditRead, PermUserManage,
	} {
		if !Allowed(RoleFacilityIT, false, perm) {
			t.Errorf("expected ti_informatica to be allowed %s", perm)
		}
	}
}

func TestAllowed_SuperuserBypassesEverything(t *testing.T) {
	if !Allowed(RoleClerk, true, PermUserManage) {
		t.Error("expected superuser bypass regardless of role")
	}
}

func requirePermissionTest(t *testing.T, role string, superuser bool, perm Permission) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != "" {
		c.SetRequest(req.WithContext(WithIdentity(req.Context(), "u1", "Test User", role, superuser)))
	}

	h := RequirePermission(perm)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return rec, h(c)
}

func TestRequirePermission_Unauthenticated(t *testing.T) {
	_, err := requirePermissionTest(t, "", false, PermRecordRead)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequirePermission_Denied(t *testing.T) {
	_, err := requirePermissionTest(t, RoleClerk, false, PermRecordWrite)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestRequirePermission_Granted(t *testing.T) {
	rec, err := requirePermissionTest(t, RoleClinician, false, PermRecordWrite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleFacilityIT, RoleClinician, RoleTechnician, RoleClerk} {
		if !ValidRole(r) {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if ValidRole("editor") {
		t.Error("expected unknown role to be invalid")
	}
}
