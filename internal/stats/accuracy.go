package stats

import (
	"math"
	"strconv"
	"time"

	"github.com/verte-zerg/strafeval/internal/model"
)

// Movement model calibration. Friction alone brings a player from full speed
// to full accuracy in frictionTime; an active counter-strafe does it in
// counterStrafeTime. Velocity after holding a direction for t is modelled as
// v_max * (1 - e^(-t/accelTau)).
const (
	frictionTime      = 230 * time.Millisecond
	counterStrafeTime = 80 * time.Millisecond
	accelTau          = 143 * time.Millisecond
)

// VelocityFactor returns the fraction of peak speed reached after the
// movement phase. An unmeasured phase counts as full speed.
func VelocityFactor(s model.Sample) float64 {
	if !s.HasMovementDuration() {
		return 1.0
	}
	return 1 - math.Exp(-millis(*s.MovementDuration)/millis(accelTau))
}

// AccuracyScore returns how much of the deceleration the strafe and the
// shot delay covered. A missing shot delay counts as zero.
func AccuracyScore(s model.Sample) float64 {
	var shotDelay time.Duration
	if s.HasShotDelay() {
		shotDelay = *s.ShotDelay
	}
	return millis(s.Duration)/millis(frictionTime) + millis(shotDelay)/millis(counterStrafeTime)
}

// ScoreSample reports whether the shot following the strafe was accurate.
func ScoreSample(s model.Sample) bool {
	return AccuracyScore(s) >= VelocityFactor(s)
}

// Accuracy aggregates per-sample scores. Early and late rates only consider
// samples of that class; every sample counts towards the overall rate.
func Accuracy(samples []model.Sample) model.AccuracyReport {
	var r model.AccuracyReport
	r.TotalCount = len(samples)
	for _, s := range samples {
		accurate := ScoreSample(s)
		if accurate {
			r.AccurateCount++
		}
		switch s.Classification {
		case model.Early:
			r.EarlyCount++
			if accurate {
				r.EarlyAccurate++
			}
		case model.Late:
			r.LateCount++
			if accurate {
				r.LateAccurate++
			}
		case model.Perfect:
			r.PerfectCount++
		}
	}
	r.OverallRate = percent(r.AccurateCount, r.TotalCount)
	r.EarlyRate = percent(r.EarlyAccurate, r.EarlyCount)
	r.LateRate = percent(r.LateAccurate, r.LateCount)
	r.PerfectRate = percent(r.PerfectCount, r.TotalCount)
	return r
}

// FormatOverallRate renders overall and perfect rates with two decimals.
func FormatOverallRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 2, 64)
}

// FormatSubRate renders early and late rates with one decimal.
func FormatSubRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 1, 64)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
