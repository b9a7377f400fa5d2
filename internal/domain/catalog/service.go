package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maternity/maternity/internal/domain/audit"
)

var (
	ErrInvalidKind = errors.New("unknown catalog kind")
	ErrDuplicate   = errors.New("value already exists for this kind")
)

type Service struct {
	repo  Repository
	trail audit.Sink
}

func NewService(repo Repository, trail audit.Sink) *Service {
	return &Service{repo: repo, trail: trail}
}

func (s *Service) Create(ctx context.Context, actx audit.Context, it *Item) error {
	it.Value = strings.TrimSpace(it.Value)
	if !ValidKind(it.Kind) {
		return fmt.Errorf("%w: %s", ErrInvalidKind, it.Kind)
	}
	if it.Value == "" {
		return fmt.Errorf("value is required")
	}

	existing, err := s.repo.GetByKindValue(ctx, it.Kind, it.Value)
	if err == nil && existing != nil {
		return ErrDuplicate
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	it.Active = true
	if err := s.repo.Create(ctx, it); err != nil {
		return err
	}
	s.trail.Record(ctx, actx, audit.ActionCreate, "catalog_item", it.ID.String(),
		fmt.Sprintf("%s: %s", it.Kind, it.Value))
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, actx audit.Context, id uuid.UUID, value string, order int) (*Item, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("value is required")
	}

	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if value != it.Value {
		existing, err := s.repo.GetByKindValue(ctx, it.Kind, value)
		if err == nil && existing != nil && existing.ID != id {
			return nil, ErrDuplicate
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	it.Value = value
	it.Order = order
	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "catalog_item", it.ID.String(),
		fmt.Sprintf("%s: %s", it.Kind, it.Value))
	return it, nil
}

// SetActive flips the visibility of an item in lookups. Existing records
// keep referencing deactivated items.
func (s *Service) SetActive(ctx context.Context, actx audit.Context, id uuid.UUID, active bool) (*Item, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.Active == active {
		return it, nil
	}
	it.Active = active
	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}
	action := audit.ActionDelete
	detail := fmt.Sprintf("%s: %s deactivated", it.Kind, it.Value)
	if active {
		action = audit.ActionUpdate
		detail = fmt.Sprintf("%s: %s reactivated", it.Kind, it.Value)
	}
	s.trail.Record(ctx, actx, action, "catalog_item", it.ID.String(), detail)
	return it, nil
}

func (s *Service) ListByKind(ctx context.Context, kind Kind, activeOnly bool) ([]*Item, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}
	return s.repo.ListByKind(ctx, kind, activeOnly)
}

// ValidateRef reports whether id points at an active item of the given
// kind. Record services call this before storing a catalog FK.
func (s *Service) ValidateRef(ctx context.Context, kind Kind, id uuid.UUID) error {
	it, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("unknown %s reference: %s", kind, id)
	}
	if err != nil {
		return err
	}
	if it.Kind != kind {
		return fmt.Errorf("reference %s is a %s value, expected %s", id, it.Kind, kind)
	}
	if !it.Active {
		return fmt.Errorf("%s value is deactivated: %s", kind, it.Value)
	}
	return nil
}

// ValidateValue reports whether value is an active item of the given kind.
// Record services call this before storing a catalog-backed field.
func (s *Service) ValidateValue(ctx context.Context, kind Kind, value string) error {
	it, err := s.repo.GetByKindValue(ctx, kind, value)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("unknown %s value: %s", kind, value)
	}
	if err != nil {
		return err
	}
	if !it.Active {
		return fmt.Errorf("%s value is deactivated: %s", kind, value)
	}
	return nil
}
