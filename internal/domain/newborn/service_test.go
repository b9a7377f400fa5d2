package newborn

import (
	"context"
	"errors"
	"maps"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maternity/maternity/internal/domain/audit"
	"github.com/maternity/maternity/internal/domain/birth"
	"github.com/maternity/maternity/internal/domain/catalog"
	"github.com/maternity/maternity/internal/platform/auth"
)

type mockRepo struct {
	newborns     map[uuid.UUID]*Newborn
	prophylaxis  map[uuid.UUID][]*Prophylaxis
	observations map[uuid.UUID][]*Observation
	deaths       map[uuid.UUID][]*DeathRecord

	failUpdate bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		newborns:     make(map[uuid.UUID]*Newborn),
		prophylaxis:  make(map[uuid.UUID][]*Prophylaxis),
		observations: make(map[uuid.UUID][]*Observation),
		deaths:       make(map[uuid.UUID][]*DeathRecord),
	}
}

// InTx emulates a transaction: on error the maps are restored to their
// state at entry.
func (m *mockRepo) InTx(ctx context.Context, fn func(context.Context) error) error {
	saved := mockRepo{
		newborns:     maps.Clone(m.newborns),
		prophylaxis:  maps.Clone(m.prophylaxis),
		observations: maps.Clone(m.observations),
		deaths:       maps.Clone(m.deaths),
	}
	if err := fn(ctx); err != nil {
		m.newborns, m.prophylaxis = saved.newborns, saved.prophylaxis
		m.observations, m.deaths = saved.observations, saved.deaths
		return err
	}
	return nil
}

func (m *mockRepo) Create(_ context.Context, n *Newborn) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	cp := *n
	m.newborns[n.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Newborn, error) {
	n, ok := m.newborns[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *n
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, n *Newborn) error {
	if m.failUpdate {
		return errors.New("update failed")
	}
	if _, ok := m.newborns[n.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *n
	m.newborns[n.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Newborn, int, error) {
	var out []*Newborn
	for _, n := range m.newborns {
		if !f.IncludeInactive && !n.Active {
			continue
		}
		if f.PendingDischarge && n.Discharged {
			continue
		}
		if f.BirthID != nil && n.BirthID != *f.BirthID {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) ActiveByBirth(_ context.Context, birthID uuid.UUID) ([]*Newborn, error) {
	var out []*Newborn
	for _, n := range m.newborns {
		if n.BirthID == birthID && n.Active {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) AddProphylaxis(_ context.Context, p *Prophylaxis) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	m.prophylaxis[p.NewbornID] = append(m.prophylaxis[p.NewbornID], &cp)
	return nil
}

func (m *mockRepo) ListProphylaxis(_ context.Context, newbornID uuid.UUID) ([]*Prophylaxis, error) {
	return m.prophylaxis[newbornID], nil
}

func (m *mockRepo) AddObservation(_ context.Context, o *Observation) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	cp := *o
	m.observations[o.NewbornID] = append(m.observations[o.NewbornID], &cp)
	return nil
}

func (m *mockRepo) ListObservations(_ context.Context, newbornID uuid.UUID) ([]*Observation, error) {
	return m.observations[newbornID], nil
}

func (m *mockRepo) AddDeathRecord(_ context.Context, d *DeathRecord) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	m.deaths[d.NewbornID] = append(m.deaths[d.NewbornID], &cp)
	return nil
}

func (m *mockRepo) ListDeathRecords(_ context.Context, newbornID uuid.UUID) ([]*DeathRecord, error) {
	return m.deaths[newbornID], nil
}

type mockBirths struct {
	births map[uuid.UUID]*birth.Birth
}

func (m *mockBirths) Get(_ context.Context, id uuid.UUID) (*birth.Birth, error) {
	b, ok := m.births[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return b, nil
}

type mockCatalog struct{}

func (mockCatalog) ValidateRef(context.Context, catalog.Kind, uuid.UUID) error { return nil }

type mockSigner struct{}

func (mockSigner) VerifySignature(_ context.Context, _ uuid.UUID, password string) error {
	if password != "firma" {
		return auth.ErrInvalidSignature
	}
	return nil
}

func testActor() audit.Context {
	id := uuid.New()
	return audit.Context{ActorID: &id, ActorName: "Matrona Test"}
}

func newTestService() (*Service, *mockRepo, *mockBirths, *audit.MemSink) {
	repo := newMockRepo()
	births := &mockBirths{births: make(map[uuid.UUID]*birth.Birth)}
	trail := &audit.MemSink{}
	svc := NewService(repo, births, mockCatalog{}, mockSigner{}, trail)
	return svc, repo, births, trail
}

func activeBirth() *birth.Birth {
	return &birth.Birth{ID: uuid.New(), MotherID: uuid.New(), Active: true}
}

func intPtr(v int) *int { return &v }

func validNewborn(birthID uuid.UUID) *Newborn {
	return &Newborn{
		BirthID:     birthID,
		Sex:         "F",
		WeightGrams: 3200,
		LengthCM:    49.5,
		Apgar1:      intPtr(8),
		Apgar5:      intPtr(9),
	}
}

func TestCreate(t *testing.T) {
	svc, _, births, trail := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	n := validNewborn(b.ID)
	if err := svc.Create(context.Background(), testActor(), n); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !n.Active || n.Discharged {
		t.Errorf("new newborns must start active and not discharged: %+v", n)
	}
	if len(trail.Entries) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(trail.Entries))
	}
	e := trail.Entries[0]
	if e.Action != audit.ActionCreate || e.Entity != "newborn" || e.EntityID != n.ID.String() {
		t.Errorf("unexpected trail entry: %+v", e)
	}
}

func TestCreate_BirthInactive(t *testing.T) {
	svc, _, births, _ := newTestService()
	b := activeBirth()
	b.Active = false
	births.births[b.ID] = b

	err := svc.Create(context.Background(), testActor(), validNewborn(b.ID))
	if !errors.Is(err, ErrBirthInactive) {
		t.Errorf("expected ErrBirthInactive, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, births, _ := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	bad := validNewborn(b.ID)
	bad.Sex = "X"
	if err := svc.Create(context.Background(), testActor(), bad); err == nil {
		t.Error("expected error for invalid sex")
	}

	bad = validNewborn(b.ID)
	bad.Apgar5 = intPtr(11)
	if err := svc.Create(context.Background(), testActor(), bad); err == nil {
		t.Error("expected error for apgar5 > 10")
	}

	bad = validNewborn(b.ID)
	bad.Apgar1 = intPtr(-1)
	if err := svc.Create(context.Background(), testActor(), bad); err == nil {
		t.Error("expected error for negative apgar1")
	}
}

func addProphylaxis(t *testing.T, svc *Service, newbornID uuid.UUID) {
	t.Helper()
	p := &Prophylaxis{
		NewbornID:      newbornID,
		KindID:         uuid.New(),
		AdministeredAt: time.Now(),
		Professional:   "Mat. González",
	}
	if err := svc.AddProphylaxis(context.Background(), testActor(), p); err != nil {
		t.Fatalf("add prophylaxis: %v", err)
	}
}

func TestDischarge(t *testing.T) {
	svc, repo, births, _ := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	n := validNewborn(b.ID)
	if err := svc.Create(context.Background(), testActor(), n); err != nil {
		t.Fatal(err)
	}
	addProphylaxis(t, svc, n.ID)

	out, err := svc.Discharge(context.Background(), testActor(), n.ID)
	if err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if !out.Discharged || !repo.newborns[n.ID].Discharged {
		t.Error("discharge flag not set")
	}

	if _, err := svc.Discharge(context.Background(), testActor(), n.ID); !errors.Is(err, ErrAlreadyDischarged) {
		t.Errorf("expected ErrAlreadyDischarged, got %v", err)
	}
}

func TestDischarge_NamesMissingRequirements(t *testing.T) {
	svc, repo, births, _ := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	n := validNewborn(b.ID)
	n.WeightGrams = 0
	n.Apgar5 = nil
	if err := svc.Create(context.Background(), testActor(), n); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Discharge(context.Background(), testActor(), n.ID)
	if !errors.Is(err, ErrNotDischargeable) {
		t.Fatalf("expected ErrNotDischargeable, got %v", err)
	}
	var notReady *NotDischargeableError
	if !errors.As(err, &notReady) {
		t.Fatal("expected *NotDischargeableError")
	}
	want := map[string]bool{"peso": true, "apgar a los 5 minutos": true, "al menos una profilaxis": true}
	if len(notReady.Missing) != len(want) {
		t.Fatalf("expected %d missing requirements, got %v", len(want), notReady.Missing)
	}
	for _, m := range notReady.Missing {
		if !want[m] {
			t.Errorf("unexpected missing requirement %q", m)
		}
	}
	if repo.newborns[n.ID].Discharged {
		t.Error("discharge flag must stay unset on failure")
	}
}

func TestDeactivateByBirth(t *testing.T) {
	svc, repo, births, trail := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	first := validNewborn(b.ID)
	second := validNewborn(b.ID)
	for _, n := range []*Newborn{first, second} {
		if err := svc.Create(context.Background(), testActor(), n); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := svc.DeactivateByBirth(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 deactivated newborns, got %d", len(ids))
	}
	for _, n := range repo.newborns {
		if n.Active {
			t.Errorf("newborn %s still active", n.ID)
		}
	}
	// The birth service owns the cascade's trail entries.
	if len(trail.Entries) != 2 {
		t.Errorf("cascade must not record entries itself, got %d beyond the creates", len(trail.Entries)-2)
	}
}

func TestRegisterDeath(t *testing.T) {
	svc, repo, births, trail := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	n := validNewborn(b.ID)
	if err := svc.Create(context.Background(), testActor(), n); err != nil {
		t.Fatal(err)
	}

	d, err := svc.RegisterDeath(context.Background(), testActor(), n.ID, "prematurez extrema", "firma")
	if err != nil {
		t.Fatalf("register death: %v", err)
	}
	if d.Reason != "prematurez extrema" {
		t.Errorf("unexpected reason: %q", d.Reason)
	}
	if repo.newborns[n.ID].Active {
		t.Error("newborn must be deactivated after death registration")
	}
	last := trail.Entries[len(trail.Entries)-1]
	if last.Action != audit.ActionCreate || last.Entity != "newborn_death_record" || last.EntityID != d.ID.String() {
		t.Errorf("unexpected trail entry: %+v", last)
	}

	if _, err := svc.RegisterDeath(context.Background(), testActor(), n.ID, "x", "wrong"); !errors.Is(err, auth.ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestRegisterDeath_RolledBackOnUpdateFailure(t *testing.T) {
	svc, repo, births, trail := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	n := validNewborn(b.ID)
	if err := svc.Create(context.Background(), testActor(), n); err != nil {
		t.Fatal(err)
	}
	repo.failUpdate = true

	if _, err := svc.RegisterDeath(context.Background(), testActor(), n.ID, "prematurez extrema", "firma"); err == nil {
		t.Fatal("expected error when the deactivation fails")
	}
	if len(repo.deaths[n.ID]) != 0 {
		t.Error("death record must not survive a failed deactivation")
	}
	if len(trail.Entries) != 1 {
		t.Errorf("a failed registration must not add trail entries, got %d", len(trail.Entries))
	}
}

func TestAddProphylaxis_RequiresProfessional(t *testing.T) {
	svc, _, births, _ := newTestService()
	b := activeBirth()
	births.births[b.ID] = b

	n := validNewborn(b.ID)
	if err := svc.Create(context.Background(), testActor(), n); err != nil {
		t.Fatal(err)
	}

	p := &Prophylaxis{NewbornID: n.ID, KindID: uuid.New(), Professional: "  "}
	if err := svc.AddProphylaxis(context.Background(), testActor(), p); err == nil {
		t.Error("expected error for blank professional")
	}
}
