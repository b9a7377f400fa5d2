package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	GetByKindValue(ctx context.Context, kind Kind, value string) (*Item, error)
	Update(ctx context.Context, it *Item) error
	// ListByKind returns items of a kind ordered by sort_order then value.
	// When activeOnly is set, deactivated items are excluded.
	ListByKind(ctx context.Context, kind Kind, activeOnly bool) ([]*Item, error)
}
