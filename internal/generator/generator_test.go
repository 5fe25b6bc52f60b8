package generator

import (
	"testing"
	"time"

	"github.com/verte-zerg/strafeval/internal/detector"
	"github.com/verte-zerg/strafeval/internal/model"
)

func TestStrafeClassifiesThroughDetector(t *testing.T) {
	g := NewSeeded(42)
	det := detector.New(detector.Options{RequireShot: true})
	start := time.Unix(1700000000, 0)
	for i := 0; i < 60; i++ {
		kind := []model.Classification{model.Early, model.Late, model.Perfect}[i%3]
		var got []model.StrafeEvent
		for _, ev := range g.Strafe(kind, start) {
			got = append(got, det.Feed(ev)...)
		}
		if len(got) != 1 {
			t.Fatalf("iteration %d: expected 1 strafe for %s, got %d", i, kind, len(got))
		}
		if got[0].StrafeType != string(kind) {
			t.Fatalf("iteration %d: expected %s, got %s", i, kind, got[0].StrafeType)
		}
		if got[0].ShotDelay == nil || got[0].MovementDuration == nil {
			t.Fatalf("iteration %d: expected shot delay and movement: %+v", i, got[0])
		}
		start = start.Add(2 * time.Second)
	}
}

func TestStrafeAlternatesDirection(t *testing.T) {
	g := NewSeeded(1)
	start := time.Unix(0, 0)
	first := g.Strafe(model.Early, start)
	second := g.Strafe(model.Early, start)
	if first[0].Key == second[0].Key {
		t.Fatalf("expected alternating direction, got %v twice", first[0].Key)
	}
}

func TestPickWeights(t *testing.T) {
	g := NewSeeded(3)
	for i := 0; i < 50; i++ {
		if got := g.Pick(Weights{Late: 1}); got != model.Late {
			t.Fatalf("expected Late, got %s", got)
		}
	}
	if got := g.Pick(Weights{}); got != model.Early {
		t.Fatalf("expected Early for zero weights, got %s", got)
	}
	seen := map[model.Classification]int{}
	for i := 0; i < 300; i++ {
		seen[g.Pick(DefaultWeights)]++
	}
	if seen[model.Early] == 0 || seen[model.Late] == 0 || seen[model.Perfect] == 0 {
		t.Fatalf("expected every class to be picked: %v", seen)
	}
}

func TestRandomTimelineEndsWithFire(t *testing.T) {
	g := NewSeeded(9)
	kind, events := g.Random(DefaultWeights, time.Unix(0, 0))
	if kind == model.None {
		t.Fatalf("expected a classification")
	}
	fired := false
	for i, ev := range events {
		if i > 0 && ev.At.Before(events[i-1].At) {
			t.Fatalf("events out of order at %d", i)
		}
		if ev.Key == model.KeyFire && ev.Down {
			fired = true
		}
	}
	if !fired {
		t.Fatalf("expected a fire press")
	}
}
