package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
)

// captureLoop reads frames at the rate chosen by the motion gate, runs hand
// detection while the gate is active and feeds the pipeline. It is the only
// goroutine touching the pipeline, the gate and the camera frames.
func (a *App) captureLoop(ctx context.Context, out chan<- outcome) {
	defer a.wg.Done()
	defer close(out)

	p := <-a.reload
	enabled := false

	ticker := time.NewTicker(a.gate.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flush(out, p.Release(time.Now()), time.Now())
			return

		case next := <-a.reload:
			now := time.Now()
			a.flush(out, p.Release(now), now)
			p = next
			a.log.Info("pipeline reloaded")

		case now := <-ticker.C:
			if on := a.IsEnabled(); on != enabled {
				enabled = on
				if !on {
					res := p.Release(now)
					a.publish(p.Snapshot())
					a.deliver(ctx, out, res, now)
				}
				a.log.Info("gesture control toggled", zap.Bool("enabled", on))
			}
			if !enabled {
				continue
			}
			a.tick(ctx, out, p, ticker, now)
		}
	}
}

func (a *App) tick(ctx context.Context, out chan<- outcome, p *control.Pipeline, ticker *time.Ticker, now time.Time) {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.log.Debug("frame read failed", zap.Error(err))
		return
	}
	defer frame.Close()

	motion, changed := a.motion.Detect(frame)
	if a.gate.Observe(motion, now) {
		a.camera.SetFPS(a.gate.FPS())
		ticker.Reset(a.gate.Interval())
		a.log.Info("capture rate changed",
			zap.Bool("active", a.gate.Active()),
			zap.Int("fps", a.gate.FPS()),
			zap.Float64("changed_percent", changed),
		)
		a.mu.Lock()
		a.active, a.fps = a.gate.Active(), a.gate.FPS()
		a.mu.Unlock()
	}

	if err := a.preview.Publish(frame); err != nil {
		a.log.Debug("preview failed", zap.Error(err))
	}

	if !a.gate.Active() {
		a.step(ctx, out, p, nil, dispatch.Size{}, now)
		return
	}

	hands, err := a.detector.Detect(frame)
	if err != nil {
		a.log.Warn("hand detection failed", zap.Error(err))
		return
	}
	if len(hands) > 0 {
		a.gate.Hold(now)
	}
	size := dispatch.Size{Width: float64(frame.Cols()), Height: float64(frame.Rows())}
	a.step(ctx, out, p, hands, size, now)
}

// step runs one observation through the pipeline. Only the first hand is
// used; a pipeline serves exactly one source.
func (a *App) step(ctx context.Context, out chan<- outcome, p *control.Pipeline, hands []detector.HandLandmarks, frame dispatch.Size, now time.Time) {
	var res control.Result
	if len(hands) == 0 {
		res = p.HandLost(now)
	} else {
		res = p.Process(&hands[0], frame, now)
	}
	a.publish(p.Snapshot())
	a.deliver(ctx, out, res, now)
}

func (a *App) publish(s control.Snapshot) {
	a.mu.Lock()
	a.snapshot = s
	a.mu.Unlock()
}

// deliver hands a result to the executor loop. When the queue is full a
// batch made only of pointer moves is dropped, since the next frame
// supersedes it; anything else waits for room.
func (a *App) deliver(ctx context.Context, out chan<- outcome, res control.Result, now time.Time) {
	if len(res.Actions) == 0 && res.Transition == nil {
		return
	}
	o := outcome{result: res, time: now}

	select {
	case out <- o:
		return
	default:
	}

	if res.Transition == nil && dispatch.MovesOnly(res.Actions) {
		a.dropped.Add(1)
		return
	}
	select {
	case out <- o:
	case <-ctx.Done():
		a.log.Warn("stopping with undelivered actions", zap.Int("actions", len(res.Actions)))
	}
}

// flush delivers a final result while stopping. The executor loop keeps
// draining until out is closed, so the send cannot deadlock.
func (a *App) flush(out chan<- outcome, res control.Result, now time.Time) {
	if len(res.Actions) == 0 && res.Transition == nil {
		return
	}
	out <- outcome{result: res, time: now}
}

// executeLoop performs actions in order and journals them. ctx is never
// cancelled; the loop ends when the capture loop closes in.
func (a *App) executeLoop(ctx context.Context, in <-chan outcome) {
	defer a.wg.Done()
	for o := range in {
		if len(o.result.Actions) > 0 {
			a.runner.Run(ctx, o.result.Actions)
		}
		a.journal.Observe(ctx, o.result, o.time)
	}
}
