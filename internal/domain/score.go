package domain

// Attribute is one scored dimension of harmful content.
type Attribute string

// The attribute set requested from the scoring service.
const (
	AttributeToxicity       Attribute = "TOXICITY"
	AttributeIdentityAttack Attribute = "IDENTITY_ATTACK"
	AttributeInsult         Attribute = "INSULT"
	AttributeProfanity      Attribute = "PROFANITY"
	AttributeThreat         Attribute = "THREAT"
)

// AttributePriority is the fixed order attributes are checked against their
// thresholds. The first exceeding attribute wins; this makes the trigger
// deterministic and cheap to explain to a reviewer.
var AttributePriority = []Attribute{
	AttributeToxicity,
	AttributeIdentityAttack,
	AttributeInsult,
	AttributeProfanity,
	AttributeThreat,
}

// ScoreMap maps attribute names to scores in [0,1].
// Missing attributes are treated as 0.
type ScoreMap map[Attribute]float64

// Get returns the score for attr, defaulting to 0.
func (m ScoreMap) Get(attr Attribute) float64 {
	return m[attr]
}

// Max returns the maximum score across all attributes in the map.
func (m ScoreMap) Max() float64 {
	max := 0.0
	for _, score := range m {
		if score > max {
			max = score
		}
	}
	return max
}

// ZeroScores returns a complete score map with every attribute at 0.
// Used when the scoring service degrades.
func ZeroScores() ScoreMap {
	m := make(ScoreMap, len(AttributePriority))
	for _, attr := range AttributePriority {
		m[attr] = 0
	}
	return m
}
