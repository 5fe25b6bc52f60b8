// Package ingest applies feed messages to the detector and session store.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/verte-zerg/strafeval/internal/detector"
	"github.com/verte-zerg/strafeval/internal/feed"
	"github.com/verte-zerg/strafeval/internal/generator"
	"github.com/verte-zerg/strafeval/internal/logger"
	"github.com/verte-zerg/strafeval/internal/model"
	"github.com/verte-zerg/strafeval/internal/session"
)

// TickInterval is how often Run expires pending strafes.
const TickInterval = 50 * time.Millisecond

// Ingestor is the only writer to a session store.
type Ingestor struct {
	mu       sync.Mutex
	store    *session.Store
	det      *detector.Detector
	opts     detector.Options
	gen      *generator.Generator
	now      func() time.Time

	// lastSeen is the newest key timestamp and lastArrival the wall time
	// its message was handled. Together they map wall time onto the
	// producer's clock.
	lastSeen    time.Time
	lastArrival time.Time
}

// New returns an Ingestor writing to store.
func New(store *session.Store, opts detector.Options) *Ingestor {
	if opts.ShotWindow <= 0 {
		opts.ShotWindow = detector.DefaultShotWindow
	}
	return &Ingestor{
		store: store,
		det:   detector.New(opts),
		opts:  opts,
		gen:   generator.New(),
		now:   time.Now,
	}
}

// Store returns the underlying session store.
func (in *Ingestor) Store() *session.Store {
	return in.store
}

// Handle applies one message and returns the samples it recorded.
func (in *Ingestor) Handle(msg feed.Message) []model.Sample {
	in.mu.Lock()
	defer in.mu.Unlock()
	switch {
	case msg.Strafe != nil:
		s := msg.Strafe.Sample()
		in.store.Record(s)
		return []model.Sample{s}
	case msg.Key != nil:
		if msg.Key.At.After(in.lastSeen) {
			in.lastSeen = msg.Key.At
		}
		in.lastArrival = in.now()
		out := in.recordLocked(in.det.Feed(*msg.Key))
		if msg.Key.Key == model.KeyFire && msg.Key.Down {
			// Wire fire events are clicks with no matching release.
			release := *msg.Key
			release.Down = false
			in.det.Feed(release)
		}
		return out
	}
	return nil
}

// Tick expires a pending strafe whose shot window lapsed before the wall
// time now. Windows are measured on the event clock: now is translated by
// the wall time elapsed since the last key message arrived.
func (in *Ingestor) Tick(now time.Time) []model.Sample {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.lastArrival.IsZero() {
		return nil
	}
	return in.recordLocked(in.det.Advance(in.lastSeen.Add(now.Sub(in.lastArrival))))
}

// Flush closes the shot window of any pending strafe, as if input stopped
// after the last key event.
func (in *Ingestor) Flush() []model.Sample {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.recordLocked(in.det.Advance(in.lastSeen.Add(in.opts.ShotWindow)))
}

// Reset empties the store and forgets detector state.
func (in *Ingestor) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.det.Reset()
	in.store.Reset()
}

// Simulate records a generated strafe of the given kind. It runs on a
// scratch detector so live key state is left alone.
func (in *Ingestor) Simulate(kind model.Classification, now time.Time) []model.Sample {
	in.mu.Lock()
	defer in.mu.Unlock()
	scratch := detector.New(detector.Options{ShotWindow: in.opts.ShotWindow, RequireShot: true})
	var recorded []model.Sample
	for _, ev := range in.gen.Strafe(kind, now) {
		recorded = append(recorded, in.recordLocked(scratch.Feed(ev))...)
	}
	return recorded
}

// Keys reports whether the left and right direction keys are held.
func (in *Ingestor) Keys() (left, right bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.det.Pressed(model.KeyLeft), in.det.Pressed(model.KeyRight)
}

// Pending reports whether a strafe is waiting for a shot.
func (in *Ingestor) Pending() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.det.HasPending()
}

// Run applies live messages from msgs until ctx is done or msgs is closed,
// expiring pending strafes against the wall clock. Pending strafes are
// flushed when msgs closes.
func (in *Ingestor) Run(ctx context.Context, msgs <-chan feed.Message) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				in.Flush()
				return nil
			}
			in.Handle(msg)
		case now := <-ticker.C:
			in.Tick(now)
		}
	}
}

// Replay applies recorded messages without wall-clock expiry, so key
// timestamps alone decide shot windows.
func (in *Ingestor) Replay(ctx context.Context, msgs <-chan feed.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				in.Flush()
				return nil
			}
			in.Handle(msg)
		}
	}
}

func (in *Ingestor) recordLocked(events []model.StrafeEvent) []model.Sample {
	if len(events) == 0 {
		return nil
	}
	out := make([]model.Sample, 0, len(events))
	for _, ev := range events {
		s := ev.Sample()
		in.store.Record(s)
		logger.Debug("strafe recorded", "type", s.Classification.String(), "duration", s.Duration)
		out = append(out, s)
	}
	return out
}
