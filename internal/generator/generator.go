// Package generator builds synthetic key timelines that produce strafes.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/strafeval/internal/model"
)

// Timing ranges used for synthetic strafes.
const (
	minHold    = 150 * time.Millisecond
	maxHold    = 600 * time.Millisecond
	minGap     = 2 * time.Millisecond
	maxGap     = 60 * time.Millisecond
	maxOverlap = 80 * time.Millisecond
	minShot    = 20 * time.Millisecond
	maxShot    = 160 * time.Millisecond
)

// Weights controls how often Random picks each classification.
type Weights struct {
	Early   float64
	Late    float64
	Perfect float64
}

// DefaultWeights favors early strafes, as most players release too soon.
var DefaultWeights = Weights{Early: 0.5, Late: 0.35, Perfect: 0.15}

// Generator produces randomized key timelines.
type Generator struct {
	rnd  *rand.Rand
	left bool
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Strafe returns a timeline starting at start that classifies as kind and
// ends with a fire press. Direction alternates between calls.
func (g *Generator) Strafe(kind model.Classification, start time.Time) []model.KeyEvent {
	from, to := model.KeyLeft, model.KeyRight
	if g.left {
		from, to = to, from
	}
	g.left = !g.left

	hold := g.between(minHold, maxHold)
	release := start.Add(hold)
	var events []model.KeyEvent
	var classified time.Time

	switch kind {
	case model.Late:
		overlap := g.between(time.Millisecond, maxOverlap)
		pressTo := release.Add(-overlap)
		events = []model.KeyEvent{
			{Key: from, Down: true, At: start},
			{Key: to, Down: true, At: pressTo},
			{Key: from, Down: false, At: release},
		}
		classified = release
	case model.Perfect:
		events = []model.KeyEvent{
			{Key: from, Down: true, At: start},
			{Key: from, Down: false, At: release},
			{Key: to, Down: true, At: release},
		}
		classified = release
	default:
		gap := g.between(minGap, maxGap)
		classified = release.Add(gap)
		events = []model.KeyEvent{
			{Key: from, Down: true, At: start},
			{Key: from, Down: false, At: release},
			{Key: to, Down: true, At: classified},
		}
	}

	fire := classified.Add(g.between(minShot, maxShot))
	return append(events,
		model.KeyEvent{Key: model.KeyFire, Down: true, At: fire},
		model.KeyEvent{Key: model.KeyFire, Down: false, At: fire.Add(10 * time.Millisecond)},
		model.KeyEvent{Key: to, Down: false, At: fire.Add(20 * time.Millisecond)},
	)
}

// Pick selects a classification using the given weights.
func (g *Generator) Pick(w Weights) model.Classification {
	total := w.Early + w.Late + w.Perfect
	if total <= 0 {
		return model.Early
	}
	r := g.rnd.Float64() * total
	switch {
	case r < w.Early:
		return model.Early
	case r < w.Early+w.Late:
		return model.Late
	default:
		return model.Perfect
	}
}

// Random returns a timeline for a weighted random classification.
func (g *Generator) Random(w Weights, start time.Time) (model.Classification, []model.KeyEvent) {
	kind := g.Pick(w)
	return kind, g.Strafe(kind, start)
}

func (g *Generator) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(g.rnd.Int63n(int64(hi-lo)))
}
