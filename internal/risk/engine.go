package risk

import (
	"fmt"

	"trustcheck/internal/fusion/models"
)

// Weights holds the point values and thresholds behind the score. They are
// hand-tuned operational constants, injectable so deployments can recalibrate
// without a code change; DefaultWeights is the production set.
type Weights struct {
	Violations int

	PerLegalCase int
	LegalCap     int

	PerProceeding  int
	ProceedingsCap int

	RestrictedAccount int

	YoungEntity  int // under YoungYears
	MidAgeEntity int // under MidYears
	YoungYears   float64
	MidYears     float64

	SingleOwner      int
	OwnerNotDirector int

	PerCertIssue int
	CertCap      int

	HighDebt      int // at or above HighDebtNIS
	MediumDebt    int // at or above MediumDebtNIS
	LowDebt       int // any positive debt
	HighDebtNIS   float64
	MediumDebtNIS float64

	InactiveStatus int

	// MaxScore caps the total; absolute certainty is never claimed.
	MaxScore int

	// Level thresholds, inclusive lower bounds.
	CriticalAt int
	HighAt     int
	MediumAt   int
}

// DefaultWeights returns the production point values.
func DefaultWeights() Weights {
	return Weights{
		Violations:        40,
		PerLegalCase:      8,
		LegalCap:          25,
		PerProceeding:     10,
		ProceedingsCap:    30,
		RestrictedAccount: 35,
		YoungEntity:       15,
		MidAgeEntity:      8,
		YoungYears:        2,
		MidYears:          5,
		SingleOwner:       5,
		OwnerNotDirector:  8,
		PerCertIssue:      5,
		CertCap:           15,
		HighDebt:          30,
		MediumDebt:        20,
		LowDebt:           10,
		HighDebtNIS:       1_000_000,
		MediumDebtNIS:     100_000,
		InactiveStatus:    50,
		MaxScore:          95,
		CriticalAt:        70,
		HighAt:            50,
		MediumAt:          30,
	}
}

// Engine scores signal bags against a fixed weight set.
type Engine struct {
	weights Weights
}

func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Score evaluates the ten signals in definition order and returns the capped
// score, level, confidence, and the ordered factor list. Deterministic: the
// same signals always produce an identical assessment.
func (e *Engine) Score(s Signals) Assessment {
	w := e.weights
	var factors []Factor

	add := func(name string, impact int, description string) {
		if impact <= 0 {
			return
		}
		factors = append(factors, Factor{
			Name:        name,
			Impact:      impact,
			Severity:    severityFor(impact),
			Description: description,
		})
	}

	if s.Violations != nil && *s.Violations {
		add("violations", w.Violations,
			"flagged as a violating entity by the companies registry")
	}
	if s.ActiveLegalCases != nil && *s.ActiveLegalCases > 0 {
		add("active_legal_cases", capped(*s.ActiveLegalCases*w.PerLegalCase, w.LegalCap),
			fmt.Sprintf("%d active legal cases", *s.ActiveLegalCases))
	}
	if s.ActiveExecutionProceedings != nil && *s.ActiveExecutionProceedings > 0 {
		add("active_execution_proceedings", capped(*s.ActiveExecutionProceedings*w.PerProceeding, w.ProceedingsCap),
			fmt.Sprintf("%d active execution proceedings", *s.ActiveExecutionProceedings))
	}
	if s.RestrictedAccount != nil && *s.RestrictedAccount {
		add("restricted_account", w.RestrictedAccount,
			"bank account restricted by the central bank")
	}
	if s.EntityAgeYears != nil {
		switch age := *s.EntityAgeYears; {
		case age < w.YoungYears:
			add("entity_age", w.YoungEntity,
				fmt.Sprintf("entity registered less than %.0f years ago", w.YoungYears))
		case age < w.MidYears:
			add("entity_age", w.MidAgeEntity,
				fmt.Sprintf("entity registered less than %.0f years ago", w.MidYears))
		}
	}
	if s.SingleOwner != nil && *s.SingleOwner {
		add("single_owner", w.SingleOwner,
			"single registered owner")
	}
	if s.OwnerNotDirector != nil && *s.OwnerNotDirector {
		add("owner_not_director", w.OwnerNotDirector,
			"no registered owner serves as a director")
	}
	if s.WithholdingCertIssues != nil && *s.WithholdingCertIssues > 0 {
		add("withholding_cert_issues", capped(*s.WithholdingCertIssues*w.PerCertIssue, w.CertCap),
			fmt.Sprintf("%d withholding certificate issues", *s.WithholdingCertIssues))
	}
	if s.TotalDebtNIS != nil && *s.TotalDebtNIS > 0 {
		switch debt := *s.TotalDebtNIS; {
		case debt >= w.HighDebtNIS:
			add("total_debt", w.HighDebt,
				fmt.Sprintf("total enforcement debt of %.0f NIS", debt))
		case debt >= w.MediumDebtNIS:
			add("total_debt", w.MediumDebt,
				fmt.Sprintf("total enforcement debt of %.0f NIS", debt))
		default:
			add("total_debt", w.LowDebt,
				fmt.Sprintf("total enforcement debt of %.0f NIS", debt))
		}
	}
	if s.EntityStatus != nil {
		switch *s.EntityStatus {
		case models.StatusInactive, models.StatusLiquidating, models.StatusDissolved:
			add("entity_status", w.InactiveStatus,
				fmt.Sprintf("entity status is %s", *s.EntityStatus))
		}
	}

	score := 0
	for _, f := range factors {
		score += f.Impact
	}
	if score > w.MaxScore {
		score = w.MaxScore
	}

	level := e.levelFor(score)
	return Assessment{
		Score:             score,
		Level:             level,
		ConfidencePercent: s.present() * 100 / signalCount,
		Factors:           factors,
		Recommendation:    recommendationFor(level),
	}
}

func (e *Engine) levelFor(score int) Level {
	switch {
	case score >= e.weights.CriticalAt:
		return LevelCritical
	case score >= e.weights.HighAt:
		return LevelHigh
	case score >= e.weights.MediumAt:
		return LevelMedium
	default:
		return LevelLow
	}
}

func recommendationFor(level Level) string {
	switch level {
	case LevelCritical:
		return "Do not extend credit; require prepayment and manual review."
	case LevelHigh:
		return "Manual review required before any engagement."
	case LevelMedium:
		return "Proceed with caution; request additional guarantees."
	default:
		return "Standard engagement terms apply."
	}
}

func severityFor(impact int) Severity {
	switch {
	case impact >= 30:
		return SeverityHigh
	case impact >= 10:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func capped(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}
