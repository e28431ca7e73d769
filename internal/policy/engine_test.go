package policy_test

import (
	"testing"

	"github.com/neighborly/moderation/internal/domain"
	"github.com/neighborly/moderation/internal/policy"
)

func defaultThresholds() policy.Thresholds {
	return policy.Thresholds{
		domain.AttributeToxicity:       0.7,
		domain.AttributeIdentityAttack: 0.5,
		domain.AttributeInsult:         0.8,
		domain.AttributeProfanity:      0.9,
		domain.AttributeThreat:         0.4,
	}
}

func TestNewEngine_RejectsInvalidThresholds(t *testing.T) {
	testCases := []struct {
		name       string
		thresholds policy.Thresholds
	}{
		{
			name:       "missing attribute",
			thresholds: policy.Thresholds{domain.AttributeToxicity: 0.7},
		},
		{
			name: "threshold above one",
			thresholds: func() policy.Thresholds {
				th := defaultThresholds()
				th[domain.AttributeInsult] = 1.5
				return th
			}(),
		},
		{
			name: "negative threshold",
			thresholds: func() policy.Thresholds {
				th := defaultThresholds()
				th[domain.AttributeThreat] = -0.1
				return th
			}(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := policy.NewEngine(tc.thresholds); err == nil {
				t.Error("NewEngine() expected error, got nil")
			}
		})
	}
}

func TestEngine_Decide(t *testing.T) {
	engine, err := policy.NewEngine(defaultThresholds())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}

	testCases := []struct {
		name         string
		scores       domain.ScoreMap
		wantSeverity int
		wantTrigger  *domain.Attribute
	}{
		{
			name:         "all zeros does not trigger",
			scores:       domain.ZeroScores(),
			wantSeverity: 1,
			wantTrigger:  nil,
		},
		{
			name: "score exactly at threshold does not trigger",
			scores: domain.ScoreMap{
				domain.AttributeToxicity: 0.7,
			},
			wantSeverity: 4,
			wantTrigger:  nil,
		},
		{
			name: "first attribute in priority order wins",
			scores: domain.ScoreMap{
				domain.AttributeToxicity: 0.75,
				domain.AttributeInsult:   0.85,
			},
			wantSeverity: 4,
			wantTrigger:  attr(domain.AttributeToxicity),
		},
		{
			name: "later attribute triggers when earlier ones are under",
			scores: domain.ScoreMap{
				domain.AttributeToxicity: 0.6,
				domain.AttributeThreat:   0.45,
			},
			wantSeverity: 2,
			wantTrigger:  attr(domain.AttributeThreat),
		},
		{
			name: "critical score",
			scores: domain.ScoreMap{
				domain.AttributeProfanity: 0.95,
			},
			wantSeverity: 5,
			wantTrigger:  attr(domain.AttributeProfanity),
		},
		{
			name: "severity tracks the maximum even without a trigger",
			scores: domain.ScoreMap{
				domain.AttributeInsult: 0.55,
			},
			wantSeverity: 3,
			wantTrigger:  nil,
		},
		{
			name: "low but triggering threat",
			scores: domain.ScoreMap{
				domain.AttributeThreat: 0.41,
			},
			wantSeverity: 2,
			wantTrigger:  attr(domain.AttributeThreat),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			severity, trigger := engine.Decide(tc.scores)

			if severity != tc.wantSeverity {
				t.Errorf("Decide() severity = %d, want %d", severity, tc.wantSeverity)
			}

			switch {
			case tc.wantTrigger == nil && trigger != nil:
				t.Errorf("Decide() trigger = %v, want nil", trigger.Attribute)
			case tc.wantTrigger != nil && trigger == nil:
				t.Errorf("Decide() trigger = nil, want %v", *tc.wantTrigger)
			case tc.wantTrigger != nil && trigger.Attribute != *tc.wantTrigger:
				t.Errorf("Decide() trigger = %v, want %v", trigger.Attribute, *tc.wantTrigger)
			}
		})
	}
}

func TestEngine_SeverityBounds(t *testing.T) {
	engine, err := policy.NewEngine(defaultThresholds())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}

	for _, score := range []float64{0, 0.29, 0.3, 0.5, 0.7, 0.9, 1.0} {
		severity, _ := engine.Decide(domain.ScoreMap{domain.AttributeToxicity: score})
		if severity < policy.SeverityMin || severity > policy.SeverityMax {
			t.Errorf("Decide() severity %d out of [%d,%d] for score %v",
				severity, policy.SeverityMin, policy.SeverityMax, score)
		}
	}
}

func attr(a domain.Attribute) *domain.Attribute {
	return &a
}
