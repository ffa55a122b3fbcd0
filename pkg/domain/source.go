package domain

import dErrors "trustcheck/pkg/domain-errors"

// Source identifies an external government data source.
// Invariant: the value must be one of the supported sources; each source has
// exactly one rate limiter and one cache namespace.
type Source string

// Supported sources.
const (
	SourceCompaniesRegistry    Source = "companies_registry"
	SourceCourtSearch          Source = "court_search"
	SourceEnforcementAuthority Source = "enforcement_authority"
	SourceVATDealerRegistry    Source = "vat_dealer_registry"
	SourceBankRestrictions     Source = "bank_restrictions"

	// SourceCache, SourceFallback, and SourceDerived are provenance-only
	// values; they never name a fetchable source. Derived marks facts that
	// follow from the identifier itself, such as a company's VAT status.
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
	SourceDerived  Source = "derived"
)

// validSources is the single source of truth for fetchable sources.
var validSources = map[Source]bool{
	SourceCompaniesRegistry:    true,
	SourceCourtSearch:          true,
	SourceEnforcementAuthority: true,
	SourceVATDealerRegistry:    true,
	SourceBankRestrictions:     true,
}

// ParseSource constructs a Source from external input.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !validSources[s] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown source: "+raw)
	}
	return s, nil
}

func (s Source) String() string {
	return string(s)
}

// FetchableSources returns the sources backed by a real adapter, in a stable
// order.
func FetchableSources() []Source {
	return []Source{
		SourceCompaniesRegistry,
		SourceCourtSearch,
		SourceEnforcementAuthority,
		SourceVATDealerRegistry,
		SourceBankRestrictions,
	}
}

// FactType names one independently resolved slice of the unified profile.
type FactType string

const (
	FactIdentity    FactType = "identity"
	FactLegal       FactType = "legal"
	FactEnforcement FactType = "enforcement"
	FactVAT         FactType = "vat"
	FactBank        FactType = "bank"
)

// FactTypeFor is the inverse of SourceFor: it maps a fetchable source to the
// fact type it is authoritative for. Returns "" for provenance-only sources.
func FactTypeFor(s Source) FactType {
	switch s {
	case SourceCompaniesRegistry:
		return FactIdentity
	case SourceCourtSearch:
		return FactLegal
	case SourceEnforcementAuthority:
		return FactEnforcement
	case SourceVATDealerRegistry:
		return FactVAT
	case SourceBankRestrictions:
		return FactBank
	}
	return ""
}

// SourceFor maps a fact type to the source that is authoritative for it.
func (f FactType) SourceFor() Source {
	switch f {
	case FactIdentity:
		return SourceCompaniesRegistry
	case FactLegal:
		return SourceCourtSearch
	case FactEnforcement:
		return SourceEnforcementAuthority
	case FactVAT:
		return SourceVATDealerRegistry
	case FactBank:
		return SourceBankRestrictions
	}
	return ""
}
