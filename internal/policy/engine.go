// Package policy implements the severity and threshold-decision engine.
package policy

import (
	"fmt"

	"github.com/neighborly/moderation/internal/domain"
)

// Severity bucket cut points. The maximum attribute score is bucketed with
// inclusive lower bounds: >=0.9 is critical, >=0.7 high, >=0.5 medium,
// >=0.3 low, anything below is minimal.
const (
	severityCritical = 0.9
	severityHigh     = 0.7
	severityMedium   = 0.5
	severityLow      = 0.3
)

// Severity levels.
const (
	SeverityMin = 1
	SeverityMax = 5
)

// Thresholds maps each attribute to its flagging threshold in [0,1].
type Thresholds map[domain.Attribute]float64

// Validate checks that every priority attribute has a threshold in [0,1].
func (t Thresholds) Validate() error {
	for _, attr := range domain.AttributePriority {
		v, ok := t[attr]
		if !ok {
			return fmt.Errorf("missing threshold for %s", attr)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold for %s out of range: %v", attr, v)
		}
	}
	return nil
}

// Trigger identifies the attribute that caused a flag.
type Trigger struct {
	Attribute domain.Attribute
	Score     float64
}

// Engine decides whether a score map triggers a flag and how severe the
// item is. The two are computed independently: the trigger is a first-match
// policy tie-break, the severity a continuous risk estimate.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates a decision engine for the given thresholds.
func NewEngine(thresholds Thresholds) (*Engine, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	return &Engine{thresholds: thresholds}, nil
}

// Decide returns the severity bucket for the score map and, when some
// attribute strictly exceeds its threshold, the first such attribute in
// priority order. Iteration stops at the first trigger. Severity is derived
// from the maximum score regardless of whether anything triggered, so it is
// available if the unit is later flagged via its secondary text.
func (e *Engine) Decide(scores domain.ScoreMap) (int, *Trigger) {
	severity := severityFor(scores.Max())

	for _, attr := range domain.AttributePriority {
		score := scores.Get(attr)
		if score > e.thresholds[attr] {
			return severity, &Trigger{Attribute: attr, Score: score}
		}
	}

	return severity, nil
}

// severityFor buckets a maximum score into the 1-5 severity scale.
func severityFor(max float64) int {
	switch {
	case max >= severityCritical:
		return 5
	case max >= severityHigh:
		return 4
	case max >= severityMedium:
		return 3
	case max >= severityLow:
		return 2
	default:
		return SeverityMin
	}
}
