package birth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows a birth listing. From/To bound the delivery date,
// inclusive.
type Filter struct {
	MotherID        *uuid.UUID
	From            *time.Time
	To              *time.Time
	IncludeInactive bool
}

type Repository interface {
	// InTx runs fn with every repository call inside one transaction,
	// so a deactivation and its newborn cascade commit or roll back as
	// a unit.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	Create(ctx context.Context, b *Birth) error
	GetByID(ctx context.Context, id uuid.UUID) (*Birth, error)
	Update(ctx context.Context, b *Birth) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Birth, int, error)
	// ActiveBirthIDs reports the active births of a mother; used to block
	// the mother's deactivation.
	ActiveBirthIDs(ctx context.Context, motherID uuid.UUID) ([]uuid.UUID, error)

	UpsertAttention(ctx context.Context, a *AttentionModel) error
	GetAttention(ctx context.Context, birthID uuid.UUID) (*AttentionModel, error)

	UpsertRobson(ctx context.Context, r *Robson) error
	GetRobson(ctx context.Context, birthID uuid.UUID) (*Robson, error)

	AddObservation(ctx context.Context, o *Observation) error
	ListObservations(ctx context.Context, birthID uuid.UUID) ([]*Observation, error)
}
