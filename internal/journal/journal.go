// Package journal records what the gesture core did: mode transitions and
// discrete device actions. Entries go to one or more sinks.
package journal

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/dispatch"
)

// Event kinds.
const (
	KindTransition = "transition"
	KindAction     = "action"
	KindSession    = "session"
)

// Event is one journal entry. Seq numbers the events of a session from 1
// in the order they were recorded.
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Seq       uint64          `json:"seq"`
	Kind      string          `json:"kind"`
	Gesture   string          `json:"gesture,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	Time      time.Time       `json:"time"`
}

// Sink persists or forwards events.
type Sink interface {
	Record(ctx context.Context, e Event) error
	Close() error
}

// Journal converts pipeline results into events for a single session.
type Journal struct {
	session string
	seq     atomic.Uint64
	sink    Sink
	log     *zap.Logger
}

// New starts a journal session writing to sink.
func New(sink Sink, log *zap.Logger) *Journal {
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{
		session: uuid.New().String(),
		sink:    sink,
		log:     log,
	}
}

// Session returns the session ID stamped on every event.
func (j *Journal) Session() string {
	return j.session
}

// Start records the beginning of the session.
func (j *Journal) Start(ctx context.Context, now time.Time) {
	j.record(ctx, KindSession, "", map[string]string{"state": "started"}, now)
}

// Stop records the end of the session.
func (j *Journal) Stop(ctx context.Context, now time.Time) {
	j.record(ctx, KindSession, "", map[string]string{"state": "stopped"}, now)
}

// Observe records the transition and the discrete actions of one frame.
// Pointer moves are not journaled.
func (j *Journal) Observe(ctx context.Context, res control.Result, now time.Time) {
	g := ""
	if res.State.Gesture.Valid() {
		g = res.State.Gesture.String()
	}

	if res.Transition != nil {
		j.record(ctx, KindTransition, g, res.Transition, now)
	}
	for _, a := range res.Actions {
		if a.Kind == dispatch.KindPointerMove {
			continue
		}
		j.record(ctx, KindAction, g, a, now)
	}
}

// Close closes the sink.
func (j *Journal) Close() error {
	return j.sink.Close()
}

func (j *Journal) record(ctx context.Context, kind, gesture string, detail interface{}, now time.Time) {
	data, err := json.Marshal(detail)
	if err != nil {
		j.log.Warn("journal detail not encodable", zap.String("kind", kind), zap.Error(err))
		data = nil
	}

	e := Event{
		ID:        uuid.New().String(),
		SessionID: j.session,
		Seq:       j.seq.Add(1),
		Kind:      kind,
		Gesture:   gesture,
		Detail:    data,
		Time:      now,
	}
	if err := j.sink.Record(ctx, e); err != nil {
		j.log.Warn("journal write failed", zap.String("kind", kind), zap.Error(err))
	}
}
