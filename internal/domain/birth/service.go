package birth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maternity/maternity/internal/domain/audit"
	"github.com/maternity/maternity/internal/domain/catalog"
	"github.com/maternity/maternity/internal/domain/mother"
)

var ErrMotherInactive = errors.New("la madre está inactiva")

const (
	minGestationalWeeks = 20
	maxGestationalWeeks = 45
)

// MotherStore is the slice of the mother service a birth needs.
type MotherStore interface {
	Get(ctx context.Context, id uuid.UUID) (*mother.Mother, error)
}

// NewbornCascader deactivates the active newborns of a birth and reports
// which ones it touched. It runs inside the caller's transaction; the
// caller records the trail. Implemented by the newborn service.
type NewbornCascader interface {
	DeactivateByBirth(ctx context.Context, birthID uuid.UUID) ([]uuid.UUID, error)
}

type CatalogChecker interface {
	ValidateRef(ctx context.Context, kind catalog.Kind, id uuid.UUID) error
	ValidateValue(ctx context.Context, kind catalog.Kind, value string) error
}

type SignatureVerifier interface {
	VerifySignature(ctx context.Context, userID uuid.UUID, password string) error
}

type Service struct {
	repo     Repository
	mothers  MotherStore
	catalogs CatalogChecker
	signer   SignatureVerifier
	trail    audit.Sink

	// newborns is set after construction to break the birth/newborn cycle.
	newborns NewbornCascader
}

func NewService(repo Repository, mothers MotherStore, catalogs CatalogChecker,
	signer SignatureVerifier, trail audit.Sink) *Service {
	return &Service{repo: repo, mothers: mothers, catalogs: catalogs, signer: signer, trail: trail}
}

func (s *Service) SetNewbornCascader(nc NewbornCascader) { s.newborns = nc }

func (s *Service) validate(ctx context.Context, b *Birth) error {
	if b.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if b.Time != "" {
		if _, err := time.Parse("15:04", b.Time); err != nil {
			return fmt.Errorf("time must be HH:MM")
		}
	}
	if b.GestationalAgeWeeks < minGestationalWeeks || b.GestationalAgeWeeks > maxGestationalWeeks {
		return fmt.Errorf("gestational_age_weeks must be between %d and %d",
			minGestationalWeeks, maxGestationalWeeks)
	}
	if err := s.catalogs.ValidateRef(ctx, catalog.KindTipoParto, b.DeliveryTypeID); err != nil {
		return err
	}
	return s.catalogs.ValidateRef(ctx, catalog.KindEstablecimiento, b.FacilityID)
}

func (s *Service) Create(ctx context.Context, actx audit.Context, b *Birth) error {
	m, err := s.mothers.Get(ctx, b.MotherID)
	if err != nil {
		return err
	}
	if !m.Active {
		return ErrMotherInactive
	}
	if err := s.validate(ctx, b); err != nil {
		return err
	}

	b.Active = true
	if err := s.repo.Create(ctx, b); err != nil {
		return err
	}
	s.trail.Record(ctx, actx, audit.ActionCreate, "birth", b.ID.String(),
		fmt.Sprintf("madre %s", b.MotherID))
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Birth, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Birth, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Update changes the delivery details. The mother link is immutable.
func (s *Service) Update(ctx context.Context, actx audit.Context, id uuid.UUID, in *Birth) (*Birth, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	b.Date = in.Date
	b.Time = in.Time
	b.DeliveryTypeID = in.DeliveryTypeID
	b.GestationalAgeWeeks = in.GestationalAgeWeeks
	b.FacilityID = in.FacilityID
	b.CompanionLabor = in.CompanionLabor
	b.CompanionExpulsive = in.CompanionExpulsive
	b.SkinToSkinMother = in.SkinToSkinMother
	b.SkinToSkinCompanion = in.SkinToSkinCompanion
	b.Twins = in.Twins

	if err := s.validate(ctx, b); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "birth", b.ID.String(), "")
	return b, nil
}

// Deactivate is a signed operation. The birth and its active newborns go
// down in one transaction, with one audit entry per record touched.
func (s *Service) Deactivate(ctx context.Context, actx audit.Context, id uuid.UUID, reason, password string) error {
	if actx.ActorID == nil {
		return fmt.Errorf("signature requires an authenticated account")
	}
	if err := s.signer.VerifySignature(ctx, *actx.ActorID, password); err != nil {
		return err
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !b.Active {
		return nil
	}

	var cascaded []uuid.UUID
	err = s.repo.InTx(ctx, func(txCtx context.Context) error {
		if s.newborns != nil {
			ids, err := s.newborns.DeactivateByBirth(txCtx, id)
			if err != nil {
				return err
			}
			cascaded = ids
		}
		b.Active = false
		return s.repo.Update(txCtx, b)
	})
	if err != nil {
		return err
	}

	for _, nid := range cascaded {
		s.trail.Record(ctx, actx, audit.ActionDelete, "newborn", nid.String(),
			fmt.Sprintf("baja en cascada del parto %s: %s", id, reason))
	}
	s.trail.Record(ctx, actx, audit.ActionDelete, "birth", b.ID.String(), reason)
	return nil
}

func (s *Service) GetAttention(ctx context.Context, birthID uuid.UUID) (*AttentionModel, error) {
	return s.repo.GetAttention(ctx, birthID)
}

func (s *Service) UpsertAttention(ctx context.Context, actx audit.Context, a *AttentionModel) error {
	if _, err := s.repo.GetByID(ctx, a.BirthID); err != nil {
		return err
	}
	a.ExpulsivePosition = strings.TrimSpace(a.ExpulsivePosition)
	if err := s.repo.UpsertAttention(ctx, a); err != nil {
		return err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "attention_model", a.BirthID.String(), "")
	return nil
}

func (s *Service) GetRobson(ctx context.Context, birthID uuid.UUID) (*Robson, error) {
	return s.repo.GetRobson(ctx, birthID)
}

func (s *Service) UpsertRobson(ctx context.Context, actx audit.Context, rb *Robson) error {
	if _, err := s.repo.GetByID(ctx, rb.BirthID); err != nil {
		return err
	}
	if err := s.catalogs.ValidateValue(ctx, catalog.KindRobsonGrupo, rb.Group); err != nil {
		return err
	}
	if rb.ElectiveCesarean && rb.EmergencyCesarean {
		return fmt.Errorf("a cesarean is either elective or emergency, not both")
	}
	if err := s.repo.UpsertRobson(ctx, rb); err != nil {
		return err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "robson_classification", rb.BirthID.String(),
		fmt.Sprintf("grupo %s", rb.Group))
	return nil
}

// AddObservation is a signed operation, stored signed and immutable.
func (s *Service) AddObservation(ctx context.Context, actx audit.Context, birthID uuid.UUID, text, password string) (*Observation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	if actx.ActorID == nil {
		return nil, fmt.Errorf("signature requires an authenticated account")
	}
	if err := s.signer.VerifySignature(ctx, *actx.ActorID, password); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, birthID); err != nil {
		return nil, err
	}

	o := &Observation{
		BirthID:    birthID,
		AuthorID:   actx.ActorID,
		AuthorName: actx.ActorName,
		Text:       text,
		Signed:     true,
	}
	if err := s.repo.AddObservation(ctx, o); err != nil {
		return nil, err
	}
	s.trail.Record(ctx, actx, audit.ActionCreate, "birth_observation", o.ID.String(),
		fmt.Sprintf("parto %s", birthID))
	return o, nil
}

func (s *Service) ListObservations(ctx context.Context, birthID uuid.UUID) ([]*Observation, error) {
	return s.repo.ListObservations(ctx, birthID)
}
