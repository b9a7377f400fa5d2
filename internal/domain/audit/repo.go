package audit

import (
	"context"
)

// Filter narrows a listing of audit entries. Zero values mean "no filter".
type Filter struct {
	Action   Action
	Entity   string
	EntityID string
	Actor    string // matched against actor_name, substring
}

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error)
}
