// Package risk derives a bounded, explainable risk score from the resolved
// profile facts. Scoring is pure and deterministic: no I/O, no clock, same
// signals in, byte-identical assessment out.
package risk

// Level is the discrete risk tier derived from the score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Severity tiers a single factor's impact.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Factor is one named, independently evaluated contributor to the score.
// Computed fresh on every scoring call, never persisted.
type Factor struct {
	Name        string   `json:"name"`
	Impact      int      `json:"impact"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Assessment is the scorer output. Score is capped below 100; absolute
// certainty is never claimed. Confidence reflects how many of the known
// signals had data available, not how risky the entity is.
type Assessment struct {
	Score             int      `json:"score"`
	Level             Level    `json:"level"`
	ConfidencePercent int      `json:"confidence_percent"`
	Factors           []Factor `json:"factors"`
	Recommendation    string   `json:"recommendation"`
}
