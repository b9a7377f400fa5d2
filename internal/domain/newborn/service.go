package newborn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maternity/maternity/internal/domain/audit"
	"github.com/maternity/maternity/internal/domain/birth"
	"github.com/maternity/maternity/internal/domain/catalog"
)

var (
	ErrBirthInactive     = errors.New("el parto está inactivo")
	ErrNotDischargeable  = errors.New("el recién nacido no cumple los requisitos de alta")
	ErrAlreadyDischarged = errors.New("el recién nacido ya fue dado de alta")
)

// NotDischargeableError names the requirements a discharge is missing.
type NotDischargeableError struct {
	Missing []string
}

func (e *NotDischargeableError) Error() string {
	return fmt.Sprintf("el recién nacido no cumple los requisitos de alta: %s",
		strings.Join(e.Missing, ", "))
}

func (e *NotDischargeableError) Unwrap() error { return ErrNotDischargeable }

// BirthStore is the slice of the birth service a newborn needs.
type BirthStore interface {
	Get(ctx context.Context, id uuid.UUID) (*birth.Birth, error)
}

type CatalogChecker interface {
	ValidateRef(ctx context.Context, kind catalog.Kind, id uuid.UUID) error
}

type SignatureVerifier interface {
	VerifySignature(ctx context.Context, userID uuid.UUID, password string) error
}

type Service struct {
	repo     Repository
	births   BirthStore
	catalogs CatalogChecker
	signer   SignatureVerifier
	trail    audit.Sink
}

func NewService(repo Repository, births BirthStore, catalogs CatalogChecker,
	signer SignatureVerifier, trail audit.Sink) *Service {
	return &Service{repo: repo, births: births, catalogs: catalogs, signer: signer, trail: trail}
}

func validateVitals(n *Newborn) error {
	if !validSexes[n.Sex] {
		return fmt.Errorf("sex must be M, F or I")
	}
	if n.WeightGrams < 0 {
		return fmt.Errorf("weight_grams must not be negative")
	}
	if n.LengthCM < 0 {
		return fmt.Errorf("length_cm must not be negative")
	}
	for name, v := range map[string]*int{"apgar1": n.Apgar1, "apgar5": n.Apgar5} {
		if v != nil && (*v < 0 || *v > 10) {
			return fmt.Errorf("%s must be between 0 and 10", name)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actx audit.Context, n *Newborn) error {
	b, err := s.births.Get(ctx, n.BirthID)
	if err != nil {
		return err
	}
	if !b.Active {
		return ErrBirthInactive
	}
	if err := validateVitals(n); err != nil {
		return err
	}

	n.Active = true
	n.Discharged = false
	n.CreatedBy = actx.ActorID
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.trail.Record(ctx, actx, audit.ActionCreate, "newborn", n.ID.String(),
		fmt.Sprintf("parto %s", n.BirthID))
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Newborn, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Newborn, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Update changes the clinical fields. The birth link and the discharged
// flag are not editable here; discharge has its own operation.
func (s *Service) Update(ctx context.Context, actx audit.Context, id uuid.UUID, in *Newborn) (*Newborn, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	n.Sex = in.Sex
	n.WeightGrams = in.WeightGrams
	n.LengthCM = in.LengthCM
	n.HeadCircumferenceCM = in.HeadCircumferenceCM
	n.Apgar1 = in.Apgar1
	n.Apgar5 = in.Apgar5
	n.BasicResuscitation = in.BasicResuscitation
	n.AdvancedResus = in.AdvancedResus
	n.DelayedCordClamping = in.DelayedCordClamping
	n.BreastfedWithin60 = in.BreastfedWithin60

	if err := validateVitals(n); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "newborn", n.ID.String(), "")
	return n, nil
}

// Deactivate is a signed operation.
func (s *Service) Deactivate(ctx context.Context, actx audit.Context, id uuid.UUID, reason, password string) error {
	if err := s.verifySignature(ctx, actx, password); err != nil {
		return err
	}
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !n.Active {
		return nil
	}
	n.Active = false
	if err := s.repo.Update(ctx, n); err != nil {
		return err
	}
	s.trail.Record(ctx, actx, audit.ActionDelete, "newborn", n.ID.String(), reason)
	return nil
}

// DeactivateByBirth deactivates every active newborn of a birth and reports
// which ones it touched. The birth service calls this inside its own signed,
// transactional deactivation, so no signature is re-checked and no trail is
// recorded here.
func (s *Service) DeactivateByBirth(ctx context.Context, birthID uuid.UUID) ([]uuid.UUID, error) {
	active, err := s.repo.ActiveByBirth(ctx, birthID)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for _, n := range active {
		n.Active = false
		if err := s.repo.Update(ctx, n); err != nil {
			return nil, err
		}
		ids = append(ids, n.ID)
	}
	return ids, nil
}

// Discharge validates the record is complete before setting the flag:
// measured weight and length, a 5-minute Apgar, and at least one
// administered prophylaxis. On failure nothing changes and the missing
// requirements are named.
func (s *Service) Discharge(ctx context.Context, actx audit.Context, id uuid.UUID) (*Newborn, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Discharged {
		return nil, ErrAlreadyDischarged
	}

	var missing []string
	if n.WeightGrams <= 0 {
		missing = append(missing, "peso")
	}
	if n.LengthCM <= 0 {
		missing = append(missing, "talla")
	}
	if n.Apgar5 == nil {
		missing = append(missing, "apgar a los 5 minutos")
	}
	prophylaxis, err := s.repo.ListProphylaxis(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(prophylaxis) == 0 {
		missing = append(missing, "al menos una profilaxis")
	}
	if len(missing) > 0 {
		return nil, &NotDischargeableError{Missing: missing}
	}

	n.Discharged = true
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "newborn", n.ID.String(), "alta")
	return n, nil
}

func (s *Service) AddProphylaxis(ctx context.Context, actx audit.Context, p *Prophylaxis) error {
	if _, err := s.repo.GetByID(ctx, p.NewbornID); err != nil {
		return err
	}
	if err := s.catalogs.ValidateRef(ctx, catalog.KindProfilaxisRN, p.KindID); err != nil {
		return err
	}
	p.Professional = strings.TrimSpace(p.Professional)
	if p.Professional == "" {
		return fmt.Errorf("professional is required")
	}
	if p.AdministeredAt.IsZero() {
		p.AdministeredAt = time.Now()
	}
	p.RecordedBy = actx.ActorID

	if err := s.repo.AddProphylaxis(ctx, p); err != nil {
		return err
	}
	s.trail.Record(ctx, actx, audit.ActionCreate, "newborn_prophylaxis", p.ID.String(),
		fmt.Sprintf("recién nacido %s", p.NewbornID))
	return nil
}

func (s *Service) ListProphylaxis(ctx context.Context, newbornID uuid.UUID) ([]*Prophylaxis, error) {
	return s.repo.ListProphylaxis(ctx, newbornID)
}

// AddObservation is a signed operation, stored signed and immutable.
func (s *Service) AddObservation(ctx context.Context, actx audit.Context, newbornID uuid.UUID, text, password string) (*Observation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	if err := s.verifySignature(ctx, actx, password); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, newbornID); err != nil {
		return nil, err
	}

	o := &Observation{
		NewbornID:  newbornID,
		AuthorID:   actx.ActorID,
		AuthorName: actx.ActorName,
		Text:       text,
		Signed:     true,
	}
	if err := s.repo.AddObservation(ctx, o); err != nil {
		return nil, err
	}
	s.trail.Record(ctx, actx, audit.ActionCreate, "newborn_observation", o.ID.String(),
		fmt.Sprintf("recién nacido %s", newbornID))
	return o, nil
}

func (s *Service) ListObservations(ctx context.Context, newbornID uuid.UUID) ([]*Observation, error) {
	return s.repo.ListObservations(ctx, newbornID)
}

// RegisterDeath records a neonatal death and deactivates the record. Signed.
func (s *Service) RegisterDeath(ctx context.Context, actx audit.Context, newbornID uuid.UUID, reason, password string) (*DeathRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("reason is required")
	}
	if err := s.verifySignature(ctx, actx, password); err != nil {
		return nil, err
	}

	n, err := s.repo.GetByID(ctx, newbornID)
	if err != nil {
		return nil, err
	}

	d := &DeathRecord{
		NewbornID:  newbornID,
		Reason:     reason,
		RecordedBy: actx.ActorID,
	}
	err = s.repo.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.AddDeathRecord(txCtx, d); err != nil {
			return err
		}
		if !n.Active {
			return nil
		}
		n.Active = false
		return s.repo.Update(txCtx, n)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Record(ctx, actx, audit.ActionCreate, "newborn_death_record", d.ID.String(), reason)
	return d, nil
}

func (s *Service) ListDeathRecords(ctx context.Context, newbornID uuid.UUID) ([]*DeathRecord, error) {
	return s.repo.ListDeathRecords(ctx, newbornID)
}

func (s *Service) verifySignature(ctx context.Context, actx audit.Context, password string) error {
	if actx.ActorID == nil {
		return fmt.Errorf("signature requires an authenticated account")
	}
	return s.signer.VerifySignature(ctx, *actx.ActorID, password)
}
