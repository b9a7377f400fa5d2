package mother

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maternity/maternity/internal/domain/audit"
	"github.com/maternity/maternity/internal/domain/catalog"
)

var (
	ErrDuplicateRUT    = errors.New("ya existe una madre registrada con ese RUT")
	ErrHasActiveBirths = errors.New("la madre tiene partos activos")
)

// ActiveBirthsError names the births blocking a deactivation.
type ActiveBirthsError struct {
	BirthIDs []uuid.UUID
}

func (e *ActiveBirthsError) Error() string {
	ids := make([]string, len(e.BirthIDs))
	for i, id := range e.BirthIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("la madre tiene partos activos: %s", strings.Join(ids, ", "))
}

func (e *ActiveBirthsError) Unwrap() error { return ErrHasActiveBirths }

// CatalogChecker validates catalog-backed fields.
type CatalogChecker interface {
	ValidateRef(ctx context.Context, kind catalog.Kind, id uuid.UUID) error
	ValidateValue(ctx context.Context, kind catalog.Kind, value string) error
}

// BirthChecker reports the active births of a mother. Implemented by the
// birth repository.
type BirthChecker interface {
	ActiveBirthIDs(ctx context.Context, motherID uuid.UUID) ([]uuid.UUID, error)
}

// SignatureVerifier checks a password re-entry against the caller's stored
// hash. Implemented by the user service.
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, userID uuid.UUID, password string) error
}

type Service struct {
	repo     Repository
	catalogs CatalogChecker
	births   BirthChecker
	signer   SignatureVerifier
	trail    audit.Sink
}

func NewService(repo Repository, catalogs CatalogChecker, births BirthChecker,
	signer SignatureVerifier, trail audit.Sink) *Service {
	return &Service{repo: repo, catalogs: catalogs, births: births, signer: signer, trail: trail}
}

func (s *Service) validate(ctx context.Context, m *Mother) error {
	m.FullName = strings.TrimSpace(m.FullName)
	if m.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if m.BirthDate.IsZero() {
		return fmt.Errorf("birth_date is required")
	}
	if err := s.catalogs.ValidateRef(ctx, catalog.KindComuna, m.ComunaID); err != nil {
		return err
	}
	return s.catalogs.ValidateRef(ctx, catalog.KindEstablecimiento, m.FacilityID)
}

func (s *Service) Create(ctx context.Context, actx audit.Context, m *Mother) error {
	rut, err := NormalizeRUT(m.RUT)
	if err != nil {
		return err
	}
	m.RUT = rut

	if err := s.validate(ctx, m); err != nil {
		return err
	}

	existing, err := s.repo.GetByRUT(ctx, m.RUT)
	if err == nil && existing != nil {
		return ErrDuplicateRUT
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	m.Active = true
	err = s.repo.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, m); err != nil {
			return err
		}
		// Every mother carries a screening row from the start, all pending.
		scr := &Screening{
			MotherID:     m.ID,
			VDRLResult:   ScreeningPending,
			HIVResult:    ScreeningPending,
			HepBResult:   ScreeningPending,
			ChagasResult: ScreeningPending,
		}
		return s.repo.UpsertScreening(txCtx, scr)
	})
	if err != nil {
		return err
	}

	s.trail.Record(ctx, actx, audit.ActionCreate, "mother", m.ID.String(), m.RUT)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Mother, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Mother, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Update changes demographic fields. RUT is immutable after creation.
func (s *Service) Update(ctx context.Context, actx audit.Context, id uuid.UUID, in *Mother) (*Mother, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.FullName = in.FullName
	m.BirthDate = in.BirthDate
	m.ComunaID = in.ComunaID
	m.FacilityID = in.FacilityID
	m.Migrant = in.Migrant
	m.Indigenous = in.Indigenous
	m.Disability = in.Disability

	if err := s.validate(ctx, m); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "mother", m.ID.String(), m.RUT)
	return m, nil
}

// Deactivate is a signed operation. It is refused while the mother has
// active births, naming them.
func (s *Service) Deactivate(ctx context.Context, actx audit.Context, id uuid.UUID, reason, password string) error {
	if err := s.verifySignature(ctx, actx, password); err != nil {
		return err
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	blocking, err := s.births.ActiveBirthIDs(ctx, id)
	if err != nil {
		return err
	}
	if len(blocking) > 0 {
		return &ActiveBirthsError{BirthIDs: blocking}
	}

	if !m.Active {
		return nil
	}
	m.Active = false
	if err := s.repo.Update(ctx, m); err != nil {
		return err
	}
	s.trail.Record(ctx, actx, audit.ActionDelete, "mother", m.ID.String(), reason)
	return nil
}

func (s *Service) GetScreening(ctx context.Context, motherID uuid.UUID) (*Screening, error) {
	return s.repo.GetScreening(ctx, motherID)
}

func (s *Service) UpsertScreening(ctx context.Context, actx audit.Context, scr *Screening) error {
	if _, err := s.repo.GetByID(ctx, scr.MotherID); err != nil {
		return err
	}
	for _, result := range []*string{&scr.VDRLResult, &scr.HIVResult, &scr.HepBResult, &scr.ChagasResult} {
		if *result == "" {
			*result = ScreeningPending
		}
		if *result == ScreeningPending {
			continue
		}
		if err := s.catalogs.ValidateValue(ctx, catalog.KindResultTamizaje, *result); err != nil {
			return err
		}
	}
	if err := s.repo.UpsertScreening(ctx, scr); err != nil {
		return err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "maternal_screening", scr.MotherID.String(), "")
	return nil
}

// AddObservation is a signed operation: the author confirms with their
// password and the note is stored signed and immutable.
func (s *Service) AddObservation(ctx context.Context, actx audit.Context, motherID uuid.UUID, text, password string) (*Observation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	if err := s.verifySignature(ctx, actx, password); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, motherID); err != nil {
		return nil, err
	}

	o := &Observation{
		MotherID:   motherID,
		AuthorID:   actx.ActorID,
		AuthorName: actx.ActorName,
		Text:       text,
		Signed:     true,
	}
	if err := s.repo.AddObservation(ctx, o); err != nil {
		return nil, err
	}
	s.trail.Record(ctx, actx, audit.ActionCreate, "mother_observation", o.ID.String(),
		fmt.Sprintf("madre %s", motherID))
	return o, nil
}

func (s *Service) ListObservations(ctx context.Context, motherID uuid.UUID) ([]*Observation, error) {
	return s.repo.ListObservations(ctx, motherID)
}

// RegisterDeath records a maternal death and deactivates the record. Signed.
func (s *Service) RegisterDeath(ctx context.Context, actx audit.Context, motherID uuid.UUID, reason, password string) (*DeathRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("reason is required")
	}
	if err := s.verifySignature(ctx, actx, password); err != nil {
		return nil, err
	}

	m, err := s.repo.GetByID(ctx, motherID)
	if err != nil {
		return nil, err
	}

	d := &DeathRecord{
		MotherID:   motherID,
		Reason:     reason,
		RecordedBy: actx.ActorID,
	}
	err = s.repo.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.AddDeathRecord(txCtx, d); err != nil {
			return err
		}
		if !m.Active {
			return nil
		}
		m.Active = false
		return s.repo.Update(txCtx, m)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Record(ctx, actx, audit.ActionCreate, "mother_death_record", d.ID.String(), reason)
	return d, nil
}

func (s *Service) ListDeathRecords(ctx context.Context, motherID uuid.UUID) ([]*DeathRecord, error) {
	return s.repo.ListDeathRecords(ctx, motherID)
}

func (s *Service) verifySignature(ctx context.Context, actx audit.Context, password string) error {
	if actx.ActorID == nil {
		return fmt.Errorf("signature requires an authenticated account")
	}
	return s.signer.VerifySignature(ctx, *actx.ActorID, password)
}
