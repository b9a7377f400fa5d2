package mother

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows a mother listing. RUT and Name match as substrings.
type Filter struct {
	RUT             string
	Name            string
	ComunaID        *uuid.UUID
	IncludeInactive bool
}

type Repository interface {
	// InTx runs fn with every repository call inside one transaction,
	// so a multi-row write commits or rolls back as a unit.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	Create(ctx context.Context, m *Mother) error
	GetByID(ctx context.Context, id uuid.UUID) (*Mother, error)
	GetByRUT(ctx context.Context, rut string) (*Mother, error)
	Update(ctx context.Context, m *Mother) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Mother, int, error)

	UpsertScreening(ctx context.Context, s *Screening) error
	GetScreening(ctx context.Context, motherID uuid.UUID) (*Screening, error)

	AddObservation(ctx context.Context, o *Observation) error
	ListObservations(ctx context.Context, motherID uuid.UUID) ([]*Observation, error)

	AddDeathRecord(ctx context.Context, d *DeathRecord) error
	ListDeathRecords(ctx context.Context, motherID uuid.UUID) ([]*DeathRecord, error)
}
