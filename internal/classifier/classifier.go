// Package classifier partitions business identifiers into legal entity
// categories. This is pure domain logic - no I/O, no side effects - and it
// is the single source of truth for routing VAT-status queries.
package classifier

import (
	"trustcheck/pkg/domain"
)

// EntityType is the deterministic corporate-vs-dealer partition derived from
// the identifier's first digit. Fetched data never overrides it.
type EntityType string

const (
	// EntityCompany is a registered corporation. Companies are VAT-registered
	// by definition.
	EntityCompany EntityType = "company"

	// EntityDealer is an individual dealer or partnership. The VAT sub-type
	// (registered vs exempt) requires a dealer registry lookup.
	EntityDealer EntityType = "dealer"
)

// VATStatus is the VAT registration sub-type.
type VATStatus string

const (
	VATRegistered VATStatus = "registered"
	VATExempt     VATStatus = "exempt"
)

// companySentinel is the leading digit reserved for corporate registration
// numbers. Identifiers starting with it always denote companies.
const companySentinel = '5'

// Classification is the routing decision for one identifier.
type Classification struct {
	EntityType EntityType
	// VATStatus is definitive for companies and a default assumption for
	// dealers until the registry lookup completes.
	VATStatus VATStatus
	// RequiresLookup is true when the VAT sub-type cannot be determined from
	// the identifier alone.
	RequiresLookup bool
}

// Classify derives the entity classification from the identifier alone.
func Classify(id domain.BusinessID) Classification {
	if id.FirstDigit() == companySentinel {
		return Classification{
			EntityType:     EntityCompany,
			VATStatus:      VATRegistered,
			RequiresLookup: false,
		}
	}
	return Classification{
		EntityType:     EntityDealer,
		VATStatus:      VATExempt,
		RequiresLookup: true,
	}
}
