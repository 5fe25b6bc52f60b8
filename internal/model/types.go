// Package model defines shared data structures.
package model

import (
	"math"
	"time"
)

// Classification is the timing class assigned to a counter-strafe.
type Classification string

// Known classifications. Any other wire value maps to None.
const (
	None    Classification = ""
	Early   Classification = "Early"
	Late    Classification = "Late"
	Perfect Classification = "Perfect"
)

// ParseClassification maps a wire value to a Classification.
func ParseClassification(s string) Classification {
	switch Classification(s) {
	case Early, Late, Perfect:
		return Classification(s)
	default:
		return None
	}
}

// String returns the display label.
func (c Classification) String() string {
	if c == None {
		return "Unclassified"
	}
	return string(c)
}

// Sample is one classified strafe observation.
type Sample struct {
	Classification   Classification
	Duration         time.Duration
	ShotDelay        *time.Duration
	MovementDuration *time.Duration
}

// HasShotDelay reports whether a shot was recorded for the sample.
func (s Sample) HasShotDelay() bool {
	return s.ShotDelay != nil
}

// HasMovementDuration reports whether the movement phase was measured.
func (s Sample) HasMovementDuration() bool {
	return s.MovementDuration != nil
}

// StrafeEvent is the inbound strafe payload. Duration and movement duration
// are microseconds, shot delay is milliseconds.
type StrafeEvent struct {
	StrafeType       string   `json:"strafe_type"`
	Duration         float64  `json:"duration"`
	ShotDelay        *float64 `json:"shot_delay,omitempty"`
	MovementDuration *float64 `json:"movement_duration,omitempty"`
}

// Sample normalizes the payload. Negative durations are clamped to zero and
// negative optional values are treated as absent.
func (e StrafeEvent) Sample() Sample {
	s := Sample{
		Classification: ParseClassification(e.StrafeType),
		Duration:       micros(e.Duration),
	}
	if e.ShotDelay != nil && *e.ShotDelay >= 0 {
		d := scaled(*e.ShotDelay, time.Millisecond)
		s.ShotDelay = &d
	}
	if e.MovementDuration != nil && *e.MovementDuration >= 0 {
		d := micros(*e.MovementDuration)
		s.MovementDuration = &d
	}
	return s
}

// EventFromSample builds the wire payload for a sample.
func EventFromSample(s Sample) StrafeEvent {
	e := StrafeEvent{
		StrafeType: string(s.Classification),
		Duration:   float64(s.Duration) / float64(time.Microsecond),
	}
	if s.ShotDelay != nil {
		v := float64(*s.ShotDelay) / float64(time.Millisecond)
		e.ShotDelay = &v
	}
	if s.MovementDuration != nil {
		v := float64(*s.MovementDuration) / float64(time.Microsecond)
		e.MovementDuration = &v
	}
	return e
}

func micros(v float64) time.Duration {
	return scaled(v, time.Microsecond)
}

// scaled converts v units to a Duration, saturating at the int64 bounds.
func scaled(v float64, unit time.Duration) time.Duration {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	ns := math.Round(v * float64(unit))
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// Key identifies an input tracked by the strafe detector.
type Key int

// Tracked inputs.
const (
	KeyLeft Key = iota
	KeyRight
	KeyFire
)

// String returns the display label.
func (k Key) String() string {
	switch k {
	case KeyLeft:
		return "A"
	case KeyRight:
		return "D"
	case KeyFire:
		return "Fire"
	default:
		return "?"
	}
}

// KeyEvent is a press or release of a tracked input.
type KeyEvent struct {
	Key  Key
	Down bool
	At   time.Time
}

// DescriptiveStats summarizes a duration collection.
type DescriptiveStats struct {
	Median       time.Duration
	Min          time.Duration
	Max          time.Duration
	Average      time.Duration
	StdDeviation time.Duration
	SampleCount  int
}

// AccuracyReport aggregates per-sample accuracy. Rates are percentages in
// [0,100] kept at full precision.
type AccuracyReport struct {
	OverallRate float64
	EarlyRate   float64
	LateRate    float64
	PerfectRate float64

	TotalCount    int
	AccurateCount int
	PerfectCount  int
	EarlyCount    int
	EarlyAccurate int
	LateCount     int
	LateAccurate  int
}

// Config defines live session settings.
type Config struct {
	Source       string
	Listen       string
	File         string
	DemoInterval time.Duration
	RequireShot  bool
	ShotWindow   time.Duration
	History      bool
}

// HistoryConfig defines filters for saved session summaries.
type HistoryConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionSummary is the end-of-session record kept in history.
type SessionSummary struct {
	ID           int64
	SessionID    string
	StartedAt    time.Time
	EndedAt      time.Time
	Total        int
	Accurate     int
	Perfect      int
	Early        int
	Late         int
	AccurateRate float64
	PerfectRate  float64
	EarlyRate    float64
	LateRate     float64
	MedianAll    time.Duration
	AverageAll   time.Duration
	AvgShotDelay time.Duration
}

// BucketCount is one stored histogram cell. Perfect strafes use bucket 0.
type BucketCount struct {
	Kind   Classification
	Bucket int
	Count  int
}
