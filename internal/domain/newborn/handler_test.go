package newborn

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

	"github.com/maternity/maternity/internal/platform/auth"
)

func newbornAPIRequest(t *testing.T, svc *Service, method, target, body, role string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	NewHandler(svc).Register(e.Group("/api"))

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	ctx := auth.WithIdentity(req.Context(), uuid.NewString(), "Tester", role, false)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newbornBody(birthID uuid.UUID) string {
	return fmt.Sprintf(`{"birth_id":%q,"sex":"M","weight_grams":3400,"length_cm":50,"apgar1":8,"apgar5":9}`, birthID)
}

func TestHandler_Create(t *testing.T) {
	svc, _, births, _ := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	rec := newbornAPIRequest(t, svc, http.MethodPost, "/api/newborns", newbornBody(b.ID), auth.RoleTechnician)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Create_ClerkForbidden(t *testing.T) {
	svc, _, births, _ := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	rec := newbornAPIRequest(t, svc, http.MethodPost, "/api/newborns", newbornBody(b.ID), auth.RoleClerk)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestHandler_Discharge_Conflict(t *testing.T) {
	svc, _, births, _ := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	rec := newbornAPIRequest(t, svc, http.MethodPost, "/api/newborns", newbornBody(b.ID), auth.RoleClinician)
	var n Newborn
	if err := json.Unmarshal(rec.Body.Bytes(), &n); err != nil {
		t.Fatal(err)
	}

	// No prophylaxis yet, so the discharge must be refused and name it.
	rec = newbornAPIRequest(t, svc, http.MethodPost, "/api/newborns/"+n.ID.String()+"/discharge",
		"", auth.RoleClinician)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "profilaxis") {
		t.Errorf("response must name the missing requirement: %s", rec.Body.String())
	}
}

func TestHandler_ProphylaxisThenDischarge(t *testing.T) {
	svc, _, births, _ := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	rec := newbornAPIRequest(t, svc, http.MethodPost, "/api/newborns", newbornBody(b.ID), auth.RoleClinician)
	var n Newborn
	if err := json.Unmarshal(rec.Body.Bytes(), &n); err != nil {
		t.Fatal(err)
	}

	rec = newbornAPIRequest(t, svc, http.MethodPost, "/api/newborns/"+n.ID.String()+"/prophylaxis",
		fmt.Sprintf(`{"kind_id":%q,"professional":"Mat. González"}`, uuid.NewString()), auth.RoleTechnician)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = newbornAPIRequest(t, svc, http.MethodPost, "/api/newborns/"+n.ID.String()+"/discharge",
		"", auth.RoleClinician)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out Newborn
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if !out.Discharged {
		t.Error("expected discharged newborn in response")
	}
}

func TestHandler_PendingDischargeFilter(t *testing.T) {
	svc, repo, births, _ := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	rec := newbornAPIRequest(t, svc, http.MethodPost, "/api/newborns", newbornBody(b.ID), auth.RoleClinician)
	var n Newborn
	if err := json.Unmarshal(rec.Body.Bytes(), &n); err != nil {
		t.Fatal(err)
	}
	discharged := validNewborn(b.ID)
	discharged.Discharged = true
	discharged.Active = true
	if err := repo.Create(context.Background(), discharged); err != nil {
		t.Fatal(err)
	}

	rec = newbornAPIRequest(t, svc, http.MethodGet, "/api/newborns?pending_discharge=true", "", auth.RoleClerk)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var page struct {
		Items []*Newborn `json:"items"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].ID != n.ID {
		t.Errorf("expected only the pending newborn, got total=%d", page.Total)
	}
}

func TestHandler_DeathRegistration_TechnicianForbidden(t *testing.T) {
	svc, _, births, _ := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	rec := newbornAPIRequest(t, svc, http.MethodPost, "/api/newborns", newbornBody(b.ID), auth.RoleClinician)
	var n Newborn
	if err := json.Unmarshal(rec.Body.Bytes(), &n); err != nil {
		t.Fatal(err)
	}

	rec = newbornAPIRequest(t, svc, http.MethodPost, "/api/newborns/"+n.ID.String()+"/deaths",
		`{"reason":"x","password":"firma"}`, auth.RoleTechnician)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
