package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// Sink receives trail entries from domain services. Recording is
// best-effort: a failed insert must never abort the operation that
// produced it.
type Sink interface {
	Record(ctx context.Context, actx Context, action Action, entity, entityID, detail string)
}

type Recorder struct {
	repo Repository
	log  zerolog.Logger
}

func NewRecorder(repo Repository, log zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

func (r *Recorder) Record(ctx context.Context, actx Context, action Action, entity, entityID, detail string) {
	e := &Entry{
		ActorID:   actx.ActorID,
		ActorName: actx.ActorName,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Detail:    detail,
	}
	if actx.IP != "" {
		ip := actx.IP
		e.IP = &ip
	}
	if err := r.repo.Insert(ctx, e); err != nil {
		r.log.Error().Err(err).
			Str("entity", entity).
			Str("entity_id", entityID).
			Str("action", string(action)).
			Msg("failed to record audit entry")
	}
}

// NopSink discards every entry. Used by the seed command, where no actor
// exists.
type NopSink struct{}

func (NopSink) Record(context.Context, Context, Action, string, string, string) {}

// MemSink keeps every entry in memory, in order. Tests wire it in place of
// the recorder to assert on the trail an operation produced.
type MemSink struct {
	Entries []Entry
}

func (m *MemSink) Record(_ context.Context, actx Context, action Action, entity, entityID, detail string) {
	e := Entry{
		ActorID:   actx.ActorID,
		ActorName: actx.ActorName,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Detail:    detail,
	}
	if actx.IP != "" {
		ip := actx.IP
		e.IP = &ip
	}
	m.Entries = append(m.Entries, e)
}
