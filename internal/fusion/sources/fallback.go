package sources

import (
	"fmt"

	"trustcheck/internal/classifier"
	"trustcheck/internal/fusion/models"
	"trustcheck/pkg/domain"
)

// SyntheticIdentity builds the deterministic low-fidelity identity used when
// every fetch path for the identity fact has failed and no cache entry
// exists. It carries only what the identifier itself proves and must always
// be flagged with DataQuality=low and DataSource=fallback by the caller -
// synthetic data is never presented identically to real data.
func SyntheticIdentity(id domain.BusinessID, c classifier.Classification) models.Identity {
	entityType := "registered dealer"
	if c.EntityType == classifier.EntityCompany {
		entityType = "private company"
	}
	return models.Identity{
		LegalName:  fmt.Sprintf("Unverified entity %s", id),
		EntityType: entityType,
		Status:     models.StatusUnknown,
	}
}
