package journal

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/ayusman/mudra/internal/store"
)

// DefaultChannel is the Redis pub/sub channel events are published on.
const DefaultChannel = "mudra:events"

// StoreSink appends events to the SQLite journal.
type StoreSink struct {
	events *store.EventRepository
}

// NewStoreSink returns a sink writing to s.
func NewStoreSink(s *store.Store) *StoreSink {
	return &StoreSink{events: s.Events()}
}

func (s *StoreSink) Record(_ context.Context, e Event) error {
	return s.events.Append(&store.Event{
		ID:        e.ID,
		SessionID:  e.SessionID,
		SessionSeq: e.Seq,
		Kind:       e.Kind,
		Gesture:    e.Gesture,
		Detail:     e.Detail,
		CreatedAt:  e.Time,
	})
}

// Close is a no-op; the store is owned by the caller.
func (s *StoreSink) Close() error { return nil }

// publisher is the subset of *redis.Client used by RedisSink.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisSink publishes events as JSON on a pub/sub channel so other local
// tools can follow gestures live.
type RedisSink struct {
	client  publisher
	channel string
}

// NewRedisSink connects to the Redis server at addr and verifies it answers.
func NewRedisSink(ctx context.Context, addr, channel string) (*RedisSink, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", addr)
	}
	return &RedisSink{client: client, channel: channel}, nil
}

func (s *RedisSink) Record(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	return errors.Wrapf(s.client.Publish(ctx, s.channel, payload).Err(), "publish to %s", s.channel)
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

// Multi fans events out to several sinks. A failing sink does not stop the
// others; the first error is returned.
type Multi []Sink

func (m Multi) Record(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Memory keeps events in memory. It backs tests and runs without a store.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Record(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) Close() error { return nil }

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
