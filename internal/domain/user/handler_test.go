package user

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/maternity/maternity/internal/platform/auth"
)

func userAPI(svc *Service) *echo.Echo {
	e := echo.New()
	h := NewHandler(svc)
	h.MountPublic(e.Group(""))
	h.MountProtected(e.Group(""))
	return e
}

func userAPIRequest(t *testing.T, e *echo.Echo, method, target, body string, identity *User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if identity != nil {
		ctx := auth.WithIdentity(req.Context(), identity.ID.String(), identity.FullName, identity.Role, identity.IsSuperuser)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RegisterActivateLoginFlow(t *testing.T) {
	svc, repo, _, _ := newUserTestService()
	e := userAPI(svc)

	rec := userAPIRequest(t, e, http.MethodPost, "/auth/register",
		`{"email":"ana@hospital.cl","full_name":"Ana Rojas","password":"contraseña-larga"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("password hash leaked in response")
	}

	code := repo.latestFor(t, created.ID, PurposeActivation)
	rec = userAPIRequest(t, e, http.MethodPost, "/auth/activate",
		fmt.Sprintf(`{"email":"ana@hospital.cl","code":%q}`, code.Code), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = userAPIRequest(t, e, http.MethodPost, "/auth/login",
		`{"email":"ana@hospital.cl","password":"contraseña-larga"}`, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	login := repo.latestFor(t, created.ID, PurposeLogin)
	rec = userAPIRequest(t, e, http.MethodPost, "/auth/login/code",
		fmt.Sprintf(`{"email":"ana@hospital.cl","code":%q}`, login.Code), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
		User  *User  `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Token == "" || out.User == nil || out.User.ID != created.ID {
		t.Errorf("unexpected login payload: %s", rec.Body.String())
	}
}

func TestHandler_LoginStart_BadPassword(t *testing.T) {
	svc, _, _, _ := newUserTestService()
	e := userAPI(svc)
	register(t, svc, "ana@hospital.cl")

	rec := userAPIRequest(t, e, http.MethodPost, "/auth/login",
		`{"email":"ana@hospital.cl","password":"equivocada"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestHandler_Profile(t *testing.T) {
	svc, _, _, _ := newUserTestService()
	e := userAPI(svc)
	u := register(t, svc, "ana@hospital.cl")

	rec := userAPIRequest(t, e, http.MethodGet, "/profile", "", u)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = userAPIRequest(t, e, http.MethodPut, "/profile", `{"full_name":"Ana Rojas Soto"}`, u)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.FullName != "Ana Rojas Soto" {
		t.Errorf("expected renamed profile, got %q", got.FullName)
	}
}

func TestHandler_UserManagement_RequiresIT(t *testing.T) {
	svc, repo, _, _ := newUserTestService()
	e := userAPI(svc)

	clerk := register(t, svc, "clerk@hospital.cl")
	target := register(t, svc, "ana@hospital.cl")

	rec := userAPIRequest(t, e, http.MethodGet, "/users", "", clerk)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for clerk listing users, got %d", rec.Code)
	}

	body := fmt.Sprintf(`{"role":%q}`, auth.RoleClinician)
	rec = userAPIRequest(t, e, http.MethodPut, "/users/"+target.ID.String()+"/role", body, clerk)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for clerk assigning roles, got %d", rec.Code)
	}

	it := register(t, svc, "ti@hospital.cl")
	repo.users[it.ID].Role = auth.RoleFacilityIT

	rec = userAPIRequest(t, e, http.MethodPut, "/users/"+target.ID.String()+"/role", body, repo.users[it.ID])
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.users[target.ID].Role != auth.RoleClinician {
		t.Errorf("role not applied, still %s", repo.users[target.ID].Role)
	}
}

func TestHandler_DisableEnable(t *testing.T) {
	svc, repo, _, _ := newUserTestService()
	e := userAPI(svc)

	it := register(t, svc, "ti@hospital.cl")
	repo.users[it.ID].Role = auth.RoleFacilityIT
	target := register(t, svc, "ana@hospital.cl")

	rec := userAPIRequest(t, e, http.MethodPost, "/users/"+target.ID.String()+"/disable", "", repo.users[it.ID])
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.users[target.ID].Active {
		t.Fatal("account still active after disable")
	}

	rec = userAPIRequest(t, e, http.MethodPost, "/users/"+target.ID.String()+"/enable", "", repo.users[it.ID])
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !repo.users[target.ID].Active {
		t.Error("account still inactive after enable")
	}
}

func TestHandler_SetRole_UnknownUser(t *testing.T) {
	svc, repo, _, _ := newUserTestService()
	e := userAPI(svc)

	it := register(t, svc, "ti@hospital.cl")
	repo.users[it.ID].Role = auth.RoleFacilityIT

	rec := userAPIRequest(t, e, http.MethodPut, "/users/"+uuid.NewString()+"/role",
		fmt.Sprintf(`{"role":%q}`, auth.RoleClerk), repo.users[it.ID])
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestLogSender(t *testing.T) {
	// Smoke test only; the dev sender must never panic on an empty logger.
	NewLogSender(zerolog.Nop()).Send(context.Background(), "a@b.cl", "asunto", "cuerpo")
}
