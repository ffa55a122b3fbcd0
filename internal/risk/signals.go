package risk

import (
	"strings"
	"time"

	"trustcheck/internal/fusion/models"
	"trustcheck/pkg/domain"
)

// Signals is the scorer input: ten optional observations extracted from a
// profile. Nil means "no data", which lowers confidence; it is never treated
// as a zero observation.
type Signals struct {
	Violations                 *bool                `json:"violations,omitempty"`
	ActiveLegalCases           *int                 `json:"active_legal_cases,omitempty"`
	ActiveExecutionProceedings *int                 `json:"active_execution_proceedings,omitempty"`
	RestrictedAccount          *bool                `json:"restricted_account,omitempty"`
	EntityAgeYears             *float64             `json:"entity_age_years,omitempty"`
	SingleOwner                *bool                `json:"single_owner,omitempty"`
	OwnerNotDirector           *bool                `json:"owner_not_director,omitempty"`
	WithholdingCertIssues      *int                 `json:"withholding_cert_issues,omitempty"`
	TotalDebtNIS               *float64             `json:"total_debt_nis,omitempty"`
	EntityStatus               *models.EntityStatus `json:"entity_status,omitempty"`
}

// signalCount is the fixed universe of known signals; confidence is measured
// against it.
const signalCount = 10

func (s Signals) present() int {
	n := 0
	for _, ok := range []bool{
		s.Violations != nil,
		s.ActiveLegalCases != nil,
		s.ActiveExecutionProceedings != nil,
		s.RestrictedAccount != nil,
		s.EntityAgeYears != nil,
		s.SingleOwner != nil,
		s.OwnerNotDirector != nil,
		s.WithholdingCertIssues != nil,
		s.TotalDebtNIS != nil,
		s.EntityStatus != nil,
	} {
		if ok {
			n++
		}
	}
	return n
}

// SignalsFromProfile extracts scoring signals from the resolved facts.
// Absent facts yield nil signals. Synthetic fallback identities contribute
// nothing: invented data must never move the score or the confidence.
func SignalsFromProfile(profile *models.BusinessProfile, now time.Time) Signals {
	var s Signals
	if profile == nil {
		return s
	}

	identityProv, hasIdentityProv := profile.FactProvenance[domain.FactIdentity]
	syntheticIdentity := hasIdentityProv && identityProv.DataSource == domain.SourceFallback

	if profile.Identity != nil && !syntheticIdentity {
		s.Violations = ptr(profile.Identity.Violating)
		status := profile.Identity.Status
		s.EntityStatus = &status
		if profile.Identity.RegistrationDate != nil {
			age := now.Sub(*profile.Identity.RegistrationDate).Hours() / (24 * 365.25)
			s.EntityAgeYears = &age
		}
		if owners := profile.Identity.Owners; len(owners) > 0 {
			s.SingleOwner = ptr(len(owners) == 1)
			s.OwnerNotDirector = ptr(!anyDirector(owners))
		}
	}
	if profile.Legal != nil {
		s.ActiveLegalCases = ptr(profile.Legal.ActiveCases)
	}
	if profile.Enforcement != nil {
		s.ActiveExecutionProceedings = ptr(profile.Enforcement.ActiveProceedings)
		s.TotalDebtNIS = ptr(profile.Enforcement.TotalDebtNIS)
	}
	if profile.VAT != nil {
		s.WithholdingCertIssues = ptr(profile.VAT.WithholdingCertIssues)
	}
	if profile.Bank != nil {
		s.RestrictedAccount = ptr(profile.Bank.Restricted)
	}
	return s
}

func anyDirector(owners []models.Owner) bool {
	for _, o := range owners {
		if strings.Contains(strings.ToLower(o.Role), "director") ||
			strings.Contains(o.Role, "דירקטור") {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T {
	return &v
}
