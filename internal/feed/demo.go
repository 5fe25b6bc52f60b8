package feed

import (
	"context"
	"time"

	"github.com/verte-zerg/strafeval/internal/generator"
	"github.com/verte-zerg/strafeval/internal/logger"
)

// DefaultDemoInterval is the pause between demo strafes.
const DefaultDemoInterval = 1500 * time.Millisecond

// Demo plays generated key timelines in real time.
type Demo struct {
	Interval time.Duration
	Weights  generator.Weights
	Gen      *generator.Generator
}

// Run emits one generated strafe timeline per interval until ctx is done.
func (d *Demo) Run(ctx context.Context, out chan<- Message) error {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultDemoInterval
	}
	gen := d.Gen
	if gen == nil {
		gen = generator.New()
	}
	weights := d.Weights
	if weights == (generator.Weights{}) {
		weights = generator.DefaultWeights
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		kind, events := gen.Random(weights, time.Now())
		logger.Debug("demo strafe", "kind", kind)
		for _, ev := range events {
			if wait := time.Until(ev.At); wait > 0 {
				timer.Reset(wait)
				select {
				case <-ctx.Done():
					return nil
				case <-timer.C:
				}
			}
			if err := send(ctx, out, Message{Key: &ev}); err != nil {
				return nil
			}
		}
		timer.Reset(interval)
	}
}
