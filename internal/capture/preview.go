package capture

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Preview holds the most recent frame as JPEG for viewers. Frames are only
// encoded while at least one viewer is watching.
type Preview struct {
	viewers atomic.Int32

	mu     sync.Mutex
	jpeg   []byte
	seq    uint64
	notify chan struct{}
}

// NewPreview returns an empty Preview.
func NewPreview() *Preview {
	return &Preview{notify: make(chan struct{})}
}

// Watch registers a viewer. The returned func unregisters it.
func (p *Preview) Watch() func() {
	p.viewers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { p.viewers.Add(-1) })
	}
}

// Watched reports whether anyone is viewing.
func (p *Preview) Watched() bool {
	return p.viewers.Load() > 0
}

// Publish encodes frame if the preview is watched.
func (p *Preview) Publish(frame *gocv.Mat) error {
	if !p.Watched() || frame == nil || frame.Empty() {
		return nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return errors.Wrap(err, "encode preview frame")
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	p.Store(data)
	return nil
}

// Store replaces the current JPEG and wakes waiting viewers.
func (p *Preview) Store(jpeg []byte) {
	p.mu.Lock()
	p.jpeg = jpeg
	p.seq++
	close(p.notify)
	p.notify = make(chan struct{})
	p.mu.Unlock()
}

// Latest returns the current JPEG, its sequence number and a channel closed
// when a newer frame arrives.
func (p *Preview) Latest() ([]byte, uint64, <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq, p.notify
}
