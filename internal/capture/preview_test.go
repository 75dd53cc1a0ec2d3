package capture

import (
	"bytes"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestPreview_StoreWakesViewers(t *testing.T) {
	p := NewPreview()

	data, seq, next := p.Latest()
	if data != nil || seq != 0 {
		t.Fatalf("empty preview returned %d bytes, seq %d", len(data), seq)
	}

	go p.Store([]byte{0xff, 0xd8})

	select {
	case <-next:
	case <-time.After(2 * time.Second):
		t.Fatal("viewer was not woken by Store")
	}

	data, seq, _ = p.Latest()
	if !bytes.Equal(data, []byte{0xff, 0xd8}) || seq != 1 {
		t.Errorf("Latest() = %v, %d", data, seq)
	}
}

func TestPreview_Watch(t *testing.T) {
	p := NewPreview()
	if p.Watched() {
		t.Fatal("new preview should not be watched")
	}

	stop := p.Watch()
	if !p.Watched() {
		t.Error("preview should be watched")
	}
	stop()
	stop()
	if p.Watched() {
		t.Error("unwatch should be idempotent")
	}
}

func TestPreview_PublishOnlyWhenWatched(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	p := NewPreview()
	if err := p.Publish(&frame); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if _, seq, _ := p.Latest(); seq != 0 {
		t.Error("unwatched preview should not encode")
	}

	defer p.Watch()()
	if err := p.Publish(&frame); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	data, seq, _ := p.Latest()
	if seq != 1 || len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
		t.Errorf("expected a JPEG frame, got seq %d, %d bytes", seq, len(data))
	}
}
