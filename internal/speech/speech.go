// Package speech gives the application a voice. Text is queued and spoken
// one utterance at a time by a single worker so callers never block on
// synthesis.
package speech

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("speaker closed")

// Speaker is the speech capability handed to components that announce
// things.
type Speaker interface {
	// Enqueue schedules text and returns immediately. Text is dropped when
	// the queue is full or the speaker is closed.
	Enqueue(text string)
	// Flush waits until everything enqueued before the call was spoken.
	Flush(ctx context.Context) error
	Close() error
}

// Synthesizer turns one utterance into sound.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// CommandSynthesizer runs an external TTS program with the text as its last
// argument, e.g. "say" on macOS or "espeak" on Linux.
type CommandSynthesizer struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func (s CommandSynthesizer) Speak(ctx context.Context, text string) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	args := append(append([]string(nil), s.Args...), text)
	output, err := exec.CommandContext(ctx, s.Command, args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s: %s", s.Command, output)
	}
	return nil
}

// LogSynthesizer writes utterances to the log instead of speaking them.
type LogSynthesizer struct {
	Log *zap.Logger
}

func (s LogSynthesizer) Speak(_ context.Context, text string) error {
	if s.Log != nil {
		s.Log.Info("speak", zap.String("text", text))
	}
	return nil
}

// QueueSize is the number of utterances that may wait for the worker.
const QueueSize = 16

type item struct {
	text  string
	flush chan struct{}
}

// Queue is a Speaker backed by one worker goroutine.
type Queue struct {
	synth Synthesizer
	log   *zap.Logger

	mu     sync.Mutex
	closed bool
	items  chan item
	done   chan struct{}
}

// NewQueue starts the worker.
func NewQueue(synth Synthesizer, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	q := &Queue{
		synth: synth,
		log:   log,
		items: make(chan item, QueueSize),
		done:  make(chan struct{}),
	}
	go q.run(context.Background())
	return q
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for it := range q.items {
		if it.flush != nil {
			close(it.flush)
			continue
		}
		if err := q.synth.Speak(ctx, it.text); err != nil {
			q.log.Warn("speech failed", zap.String("text", it.text), zap.Error(err))
		}
	}
}

func (q *Queue) Enqueue(text string) {
	if text == "" {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.items <- item{text: text}:
	default:
		q.log.Warn("speech queue full, dropping", zap.String("text", text))
	}
}

func (q *Queue) Flush(ctx context.Context) error {
	marker := item{flush: make(chan struct{})}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	select {
	case q.items <- marker:
		q.mu.Unlock()
	case <-ctx.Done():
		q.mu.Unlock()
		return ctx.Err()
	}

	select {
	case <-marker.flush:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close speaks whatever is still queued, then stops the worker.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	<-q.done
	return nil
}
