package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maternity/maternity/internal/domain/audit"
)

type mockRepo struct {
	items map[uuid.UUID]*Item
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Item)}
}

func (m *mockRepo) Create(_ context.Context, it *Item) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *it
	return &cp, nil
}

func (m *mockRepo) GetByKindValue(_ context.Context, kind Kind, value string) (*Item, error) {
	for _, it := range m.items {
		if it.Kind == kind && it.Value == value {
			cp := *it
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, it *Item) error {
	if _, ok := m.items[it.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *mockRepo) ListByKind(_ context.Context, kind Kind, activeOnly bool) ([]*Item, error) {
	var out []*Item
	for _, it := range m.items {
		if it.Kind != kind {
			continue
		}
		if activeOnly && !it.Active {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

func newTestService() (*Service, *mockRepo, *audit.MemSink) {
	repo := newMockRepo()
	trail := &audit.MemSink{}
	return NewService(repo, trail), repo, trail
}

func TestCreate(t *testing.T) {
	svc, repo, trail := newTestService()

	it := &Item{Kind: KindComuna, Value: "  Valdivia "}
	if err := svc.Create(context.Background(), audit.Context{}, it); err != nil {
		t.Fatalf("create: %v", err)
	}
	if it.Value != "Valdivia" {
		t.Errorf("expected trimmed value, got %q", it.Value)
	}
	if !it.Active {
		t.Error("new items must start active")
	}
	if len(repo.items) != 1 {
		t.Errorf("expected 1 stored item, got %d", len(repo.items))
	}
	if len(trail.Entries) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(trail.Entries))
	}
	e := trail.Entries[0]
	if e.Action != audit.ActionCreate || e.Entity != "catalog_item" || e.EntityID != it.ID.String() {
		t.Errorf("unexpected trail entry: %+v", e)
	}
}

func TestCreate_InvalidKind(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Create(context.Background(), audit.Context{}, &Item{Kind: "VAL_NOPE", Value: "x"})
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestCreate_EmptyValue(t *testing.T) {
	svc, _, _ := newTestService()

	if err := svc.Create(context.Background(), audit.Context{}, &Item{Kind: KindComuna, Value: "   "}); err == nil {
		t.Error("expected error for blank value")
	}
}

func TestCreate_Duplicate(t *testing.T) {
	svc, _, _ := newTestService()

	ctx := context.Background()
	if err := svc.Create(ctx, audit.Context{}, &Item{Kind: KindTipoParto, Value: "Vaginal"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := svc.Create(ctx, audit.Context{}, &Item{Kind: KindTipoParto, Value: "Vaginal"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	// Same value under a different kind is fine.
	if err := svc.Create(ctx, audit.Context{}, &Item{Kind: KindResultTamizaje, Value: "Vaginal"}); err != nil {
		t.Errorf("same value under another kind: %v", err)
	}
}

func TestUpdate_DuplicateValue(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a := &Item{Kind: KindComuna, Value: "Osorno"}
	b := &Item{Kind: KindComuna, Value: "Ancud"}
	if err := svc.Create(ctx, audit.Context{}, a); err != nil {
		t.Fatal(err)
	}
	if err := svc.Create(ctx, audit.Context{}, b); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Update(ctx, audit.Context{}, b.ID, "Osorno", 0)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	// Keeping its own value is not a conflict.
	if _, err := svc.Update(ctx, audit.Context{}, b.ID, "Ancud", 5); err != nil {
		t.Errorf("self update: %v", err)
	}
}

func TestSetActive_HiddenFromLookups(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	it := &Item{Kind: KindProfilaxisRN, Value: "VITK"}
	if err := svc.Create(ctx, audit.Context{}, it); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SetActive(ctx, audit.Context{}, it.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	active, err := svc.ListByKind(ctx, KindProfilaxisRN, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("deactivated item still in active lookup: %d items", len(active))
	}

	all, err := svc.ListByKind(ctx, KindProfilaxisRN, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("deactivated item should remain listed, got %d items", len(all))
	}
}

func TestValidateRef(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	it := &Item{Kind: KindComuna, Value: "Puerto Montt"}
	if err := svc.Create(ctx, audit.Context{}, it); err != nil {
		t.Fatal(err)
	}

	if err := svc.ValidateRef(ctx, KindComuna, it.ID); err != nil {
		t.Errorf("valid ref rejected: %v", err)
	}
	if err := svc.ValidateRef(ctx, KindEstablecimiento, it.ID); err == nil {
		t.Error("expected kind mismatch error")
	}
	if err := svc.ValidateRef(ctx, KindComuna, uuid.New()); err == nil {
		t.Error("expected unknown reference error")
	}

	if _, err := svc.SetActive(ctx, audit.Context{}, it.ID, false); err != nil {
		t.Fatal(err)
	}
	if err := svc.ValidateRef(ctx, KindComuna, it.ID); err == nil {
		t.Error("expected error for deactivated reference")
	}
}

func TestValidateValue(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	it := &Item{Kind: KindRobsonGrupo, Value: "1"}
	if err := svc.Create(ctx, audit.Context{}, it); err != nil {
		t.Fatal(err)
	}

	if err := svc.ValidateValue(ctx, KindRobsonGrupo, "1"); err != nil {
		t.Errorf("active value rejected: %v", err)
	}
	if err := svc.ValidateValue(ctx, KindRobsonGrupo, "99"); err == nil {
		t.Error("expected error for unknown value")
	}

	if _, err := svc.SetActive(ctx, audit.Context{}, it.ID, false); err != nil {
		t.Fatal(err)
	}
	if err := svc.ValidateValue(ctx, KindRobsonGrupo, "1"); err == nil {
		t.Error("expected error for deactivated value")
	}
}
