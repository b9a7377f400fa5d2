package newborn

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows a newborn listing.
type Filter struct {
	BirthID          *uuid.UUID
	MotherID         *uuid.UUID
	PendingDischarge bool
	IncludeInactive  bool
}

type Repository interface {
	// InTx runs fn with every repository call inside one transaction,
	// so a multi-row write commits or rolls back as a unit.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	Create(ctx context.Context, n *Newborn) error
	GetByID(ctx context.Context, id uuid.UUID) (*Newborn, error)
	Update(ctx context.Context, n *Newborn) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Newborn, int, error)
	// ActiveByBirth returns the active newborns of a birth, for the
	// deactivation cascade.
	ActiveByBirth(ctx context.Context, birthID uuid.UUID) ([]*Newborn, error)

	AddProphylaxis(ctx context.Context, p *Prophylaxis) error
	ListProphylaxis(ctx context.Context, newbornID uuid.UUID) ([]*Prophylaxis, error)

	AddObservation(ctx context.Context, o *Observation) error
	ListObservations(ctx context.Context, newbornID uuid.UUID) ([]*Observation, error)

	AddDeathRecord(ctx context.Context, d *DeathRecord) error
	ListDeathRecords(ctx context.Context, newbornID uuid.UUID) ([]*DeathRecord, error)
}
