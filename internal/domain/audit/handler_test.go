package audit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/maternity/maternity/internal/platform/auth"
)

func listRequest(t *testing.T, repo Repository, target, role string, superuser bool) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := NewHandler(repo)
	h.Register(e.Group("/api"))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := auth.WithIdentity(req.Context(), uuid.NewString(), "Tester", role, superuser)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_List(t *testing.T) {
	repo := &mockRepo{}
	for i := 0; i < 3; i++ {
		repo.entries = append(repo.entries, &Entry{
			ID:         uuid.New(),
			ActorName:  "Ana",
			Action:     ActionCreate,
			Entity:     "mother",
			EntityID:   uuid.NewString(),
			RecordedAt: time.Now(),
		})
	}

	rec := listRequest(t, repo, "/api/audit", auth.RoleFacilityIT, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var page struct {
		Items []*Entry `json:"items"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 3 {
		t.Errorf("expected 3 entries, got total=%d items=%d", page.Total, len(page.Items))
	}
}

func TestHandler_List_Filtered(t *testing.T) {
	repo := &mockRepo{entries: []*Entry{
		{ID: uuid.New(), Entity: "mother", Action: ActionCreate},
		{ID: uuid.New(), Entity: "birth", Action: ActionDelete},
	}}

	rec := listRequest(t, repo, "/api/audit?entity=birth", auth.RoleFacilityIT, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var page struct {
		Items []*Entry `json:"items"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.Total != 1 || page.Items[0].Entity != "birth" {
		t.Errorf("unexpected filtered page: %+v", page)
	}
}

func TestHandler_List_Forbidden(t *testing.T) {
	repo := &mockRepo{}

	rec := listRequest(t, repo, "/api/audit", auth.RoleClinician, false)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for clinician, got %d", rec.Code)
	}
}

func TestHandler_List_SuperuserBypass(t *testing.T) {
	repo := &mockRepo{}

	rec := listRequest(t, repo, "/api/audit", auth.RoleClerk, true)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for superuser, got %d", rec.Code)
	}
}
