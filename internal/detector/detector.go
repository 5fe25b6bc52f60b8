// Package detector classifies counter-strafes from direction key and fire
// input timing.
package detector

import (
	"time"

	"github.com/verte-zerg/strafeval/internal/model"
)

// Timing thresholds.
const (
	// PerfectGap is the largest release-to-press gap that counts as perfect.
	PerfectGap = 1600 * time.Microsecond
	// MaxEarlyGap bounds the gap of an early strafe.
	MaxEarlyGap = 200 * time.Millisecond
	// MaxLateOverlap bounds the overlap of a late strafe.
	MaxLateOverlap = 300 * time.Millisecond
	// DefaultShotWindow is how long a classified strafe waits for a shot.
	DefaultShotWindow = 300 * time.Millisecond
)

// Options configures a Detector.
type Options struct {
	// ShotWindow defaults to DefaultShotWindow when zero.
	ShotWindow time.Duration
	// RequireShot drops strafes that see no shot within the window. When
	// false they are emitted without a shot delay once the window lapses.
	RequireShot bool
}

type keyState struct {
	down       bool
	pressedAt  time.Time
	releasedAt time.Time
	released   bool
	held       time.Duration
}

type pending struct {
	sample model.Sample
	at     time.Time
}

// Detector is a state machine over key events. It is not safe for
// concurrent use.
type Detector struct {
	opts      Options
	keys      [2]keyState
	bothSince time.Time
	both      bool
	fireDown  bool
	pending   *pending
}

// New returns a Detector.
func New(opts Options) *Detector {
	if opts.ShotWindow <= 0 {
		opts.ShotWindow = DefaultShotWindow
	}
	return &Detector{opts: opts}
}

// Pressed reports whether the direction key is held.
func (d *Detector) Pressed(k model.Key) bool {
	if k != model.KeyLeft && k != model.KeyRight {
		return false
	}
	return d.keys[k].down
}

// HasPending reports whether a strafe is waiting for a shot.
func (d *Detector) HasPending() bool {
	return d.pending != nil
}

// Feed applies one key event and returns the strafe events it completes.
func (d *Detector) Feed(ev model.KeyEvent) []model.StrafeEvent {
	out := d.Advance(ev.At)
	switch ev.Key {
	case model.KeyFire:
		if ev.Down && !d.fireDown {
			out = append(out, d.fire(ev.At)...)
		}
		d.fireDown = ev.Down
	case model.KeyLeft, model.KeyRight:
		if ev.Down {
			d.press(ev.Key, ev.At)
		} else {
			d.release(ev.Key, ev.At)
		}
		d.evalOverlap(ev.At)
	}
	return out
}

// Advance expires a pending strafe whose shot window has lapsed.
func (d *Detector) Advance(now time.Time) []model.StrafeEvent {
	if d.pending == nil || now.Sub(d.pending.at) < d.opts.ShotWindow {
		return nil
	}
	p := d.pending
	d.pending = nil
	if d.opts.RequireShot {
		return nil
	}
	return []model.StrafeEvent{model.EventFromSample(p.sample)}
}

// Reset forgets all key and pending state.
func (d *Detector) Reset() {
	*d = Detector{opts: d.opts}
}

func (d *Detector) press(k model.Key, at time.Time) {
	ks := &d.keys[k]
	if ks.down {
		return
	}
	ks.down = true
	ks.pressedAt = at
	ks.released = false
	other := &d.keys[opposite(k)]
	if other.released {
		d.evalGap(at.Sub(other.releasedAt), other.held, at)
		other.released = false
	}
}

func (d *Detector) release(k model.Key, at time.Time) {
	ks := &d.keys[k]
	if !ks.down {
		return
	}
	ks.down = false
	ks.released = true
	ks.releasedAt = at
	ks.held = at.Sub(ks.pressedAt)
}

// evalGap classifies the gap between releasing one direction and pressing
// the other.
func (d *Detector) evalGap(gap, held time.Duration, at time.Time) {
	switch {
	case gap < PerfectGap:
		d.setPending(model.Sample{Classification: model.Perfect, MovementDuration: &held}, at)
	case gap > PerfectGap && gap < MaxEarlyGap:
		d.setPending(model.Sample{Classification: model.Early, Duration: gap, MovementDuration: &held}, at)
	}
}

// evalOverlap tracks both directions being held and classifies the overlap
// once one of them is let go.
func (d *Detector) evalOverlap(at time.Time) {
	left, right := d.keys[model.KeyLeft], d.keys[model.KeyRight]
	if left.down && right.down {
		if !d.both {
			d.both = true
			d.bothSince = at
		}
		return
	}
	if !d.both {
		return
	}
	d.both = false
	overlap := at.Sub(d.bothSince)
	if overlap >= MaxLateOverlap {
		return
	}
	held := left.held
	if right.released && right.releasedAt.Equal(at) {
		held = right.held
	}
	d.setPending(model.Sample{Classification: model.Late, Duration: overlap, MovementDuration: &held}, at)
}

func (d *Detector) setPending(s model.Sample, at time.Time) {
	d.pending = &pending{sample: s, at: at}
}

func (d *Detector) fire(at time.Time) []model.StrafeEvent {
	if d.pending == nil {
		return nil
	}
	elapsed := at.Sub(d.pending.at)
	if elapsed < 0 || elapsed >= d.opts.ShotWindow {
		return nil
	}
	s := d.pending.sample
	delay := elapsed.Truncate(time.Millisecond)
	s.ShotDelay = &delay
	d.pending = nil
	return []model.StrafeEvent{model.EventFromSample(s)}
}

func opposite(k model.Key) model.Key {
	if k == model.KeyLeft {
		return model.KeyRight
	}
	return model.KeyLeft
}
