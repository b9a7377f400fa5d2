package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is the kind of operation an entry documents.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
	ActionOther  Action = "other"
)

// Entry is one row of the action log. Entries are append-only: the
// application never updates or deletes them, and the canonical read order is
// RecordedAt descending.
type Entry struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ActorID    *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"`
	ActorName  string     `db:"actor_name" json:"actor_name"`
	Action     Action     `db:"action" json:"action"`
	Entity     string     `db:"entity" json:"entity"`
	EntityID   string     `db:"entity_id" json:"entity_id"`
	Detail     string     `db:"detail" json:"detail"`
	IP         *string    `db:"ip" json:"ip,omitempty"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
}
