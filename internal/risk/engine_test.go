package risk

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustcheck/internal/fusion/models"
	"trustcheck/pkg/domain"
)

func TestScore_EmptySignals(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	assessment := engine.Score(Signals{})

	assert.Zero(t, assessment.Score)
	assert.Zero(t, assessment.ConfidencePercent)
	assert.Equal(t, LevelLow, assessment.Level)
	assert.Empty(t, assessment.Factors)
	assert.NotEmpty(t, assessment.Recommendation)
}

func TestScore_Deterministic(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	signals := Signals{
		Violations:       ptr(true),
		ActiveLegalCases: ptr(2),
		TotalDebtNIS:     ptr(250000.0),
		EntityAgeYears:   ptr(1.5),
	}

	first, err := json.Marshal(engine.Score(signals))
	require.NoError(t, err)
	second, err := json.Marshal(engine.Score(signals))
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical signals yield a byte-identical assessment")
}

func TestScore_LiquidatingAloneIsAtLeastHigh(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	status := models.StatusLiquidating
	assessment := engine.Score(Signals{EntityStatus: &status})

	assert.GreaterOrEqual(t, assessment.Score, 50)
	assert.Contains(t, []Level{LevelHigh, LevelCritical}, assessment.Level)
}

func TestScore_ConcreteFourSignalScenario(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	assessment := engine.Score(Signals{
		Violations:                 ptr(true),
		ActiveLegalCases:           ptr(3),
		ActiveExecutionProceedings: ptr(2),
		TotalDebtNIS:               ptr(150000.0),
	})

	assert.GreaterOrEqual(t, assessment.Score, 70)
	assert.Equal(t, LevelCritical, assessment.Level)
	assert.Equal(t, 40, assessment.ConfidencePercent, "4 of 10 signals present")

	names := make([]string, len(assessment.Factors))
	for i, f := range assessment.Factors {
		names[i] = f.Name
	}
	assert.Equal(t, []string{
		"violations",
		"active_legal_cases",
		"active_execution_proceedings",
		"total_debt",
	}, names, "factors in signal-definition order")
}

func TestScore_CapAndBounds(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	status := models.StatusLiquidating
	assessment := engine.Score(Signals{
		Violations:                 ptr(true),
		ActiveLegalCases:           ptr(10),
		ActiveExecutionProceedings: ptr(10),
		RestrictedAccount:          ptr(true),
		EntityAgeYears:             ptr(0.5),
		SingleOwner:                ptr(true),
		OwnerNotDirector:           ptr(true),
		WithholdingCertIssues:      ptr(10),
		TotalDebtNIS:               ptr(5_000_000.0),
		EntityStatus:               &status,
	})

	assert.Equal(t, 95, assessment.Score, "score never reaches 100")
	assert.Equal(t, LevelCritical, assessment.Level)
	assert.Equal(t, 100, assessment.ConfidencePercent)
}

func TestScore_PerSignalCaps(t *testing.T) {
	engine := NewEngine(DefaultWeights())

	t.Run("legal cases cap", func(t *testing.T) {
		a := engine.Score(Signals{ActiveLegalCases: ptr(100)})
		require.Len(t, a.Factors, 1)
		assert.Equal(t, 25, a.Factors[0].Impact)
	})

	t.Run("proceedings cap", func(t *testing.T) {
		a := engine.Score(Signals{ActiveExecutionProceedings: ptr(100)})
		require.Len(t, a.Factors, 1)
		assert.Equal(t, 30, a.Factors[0].Impact)
	})

	t.Run("cert issues cap", func(t *testing.T) {
		a := engine.Score(Signals{WithholdingCertIssues: ptr(100)})
		require.Len(t, a.Factors, 1)
		assert.Equal(t, 15, a.Factors[0].Impact)
	})
}

func TestScore_DebtTiers(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	cases := []struct {
		debt   float64
		impact int
	}{
		{5_000, 10},
		{150_000, 20},
		{1_000_000, 30},
		{2_500_000, 30},
	}
	for _, tc := range cases {
		a := engine.Score(Signals{TotalDebtNIS: &tc.debt})
		require.Len(t, a.Factors, 1)
		assert.Equal(t, tc.impact, a.Factors[0].Impact, "debt %.0f", tc.debt)
	}

	zero := 0.0
	a := engine.Score(Signals{TotalDebtNIS: &zero})
	assert.Empty(t, a.Factors, "zero debt contributes nothing but counts toward confidence")
	assert.Equal(t, 10, a.ConfidencePercent)
}

func TestScore_BenignSignalsLowerNothing(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	status := models.StatusActive
	assessment := engine.Score(Signals{
		Violations:        ptr(false),
		RestrictedAccount: ptr(false),
		EntityAgeYears:    ptr(12.0),
		EntityStatus:      &status,
	})

	assert.Zero(t, assessment.Score)
	assert.Equal(t, LevelLow, assessment.Level)
	assert.Equal(t, 40, assessment.ConfidencePercent)
	assert.Empty(t, assessment.Factors)
}

func TestSignalsFromProfile(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("nil profile yields an empty bag", func(t *testing.T) {
		s := SignalsFromProfile(nil, now)
		assert.Zero(t, s.present())
	})

	t.Run("full profile maps every available fact", func(t *testing.T) {
		reg := now.AddDate(-3, 0, 0)
		profile := &models.BusinessProfile{
			Identity: &models.Identity{
				LegalName:        "Acme Ltd",
				Status:           models.StatusActive,
				Violating:        true,
				RegistrationDate: &reg,
				Owners: []models.Owner{
					{Name: "A", Role: "shareholder", SharePercent: 100},
				},
			},
			Legal:       &models.LegalExposure{ActiveCases: 2},
			Enforcement: &models.EnforcementExposure{ActiveProceedings: 1, TotalDebtNIS: 50000},
			VAT:         &models.VATRecord{WithholdingCertIssues: 1},
			Bank:        &models.BankRestriction{Restricted: true},
			FactProvenance: map[domain.FactType]models.Provenance{
				domain.FactIdentity: {DataSource: domain.SourceCompaniesRegistry},
			},
		}

		s := SignalsFromProfile(profile, now)
		assert.Equal(t, 10, s.present())
		require.NotNil(t, s.Violations)
		assert.True(t, *s.Violations)
		require.NotNil(t, s.EntityAgeYears)
		assert.InDelta(t, 3.0, *s.EntityAgeYears, 0.1)
		require.NotNil(t, s.SingleOwner)
		assert.True(t, *s.SingleOwner)
		require.NotNil(t, s.OwnerNotDirector)
		assert.True(t, *s.OwnerNotDirector, "sole shareholder holds no director role")
	})

	t.Run("director among owners clears the flag", func(t *testing.T) {
		profile := &models.BusinessProfile{
			Identity: &models.Identity{
				Status: models.StatusActive,
				Owners: []models.Owner{
					{Name: "A", Role: "shareholder"},
					{Name: "B", Role: "director"},
				},
			},
		}
		s := SignalsFromProfile(profile, now)
		require.NotNil(t, s.OwnerNotDirector)
		assert.False(t, *s.OwnerNotDirector)
		require.NotNil(t, s.SingleOwner)
		assert.False(t, *s.SingleOwner)
	})

	t.Run("synthetic identity contributes no signals", func(t *testing.T) {
		profile := &models.BusinessProfile{
			Identity: &models.Identity{
				LegalName: "Unverified entity 312345678",
				Status:    models.StatusUnknown,
			},
			FactProvenance: map[domain.FactType]models.Provenance{
				domain.FactIdentity: {DataSource: domain.SourceFallback, DataQuality: models.QualityLow},
			},
		}
		s := SignalsFromProfile(profile, now)
		assert.Nil(t, s.Violations)
		assert.Nil(t, s.EntityStatus)
		assert.Zero(t, s.present(), "invented facts never move the score or confidence")
	})
}
