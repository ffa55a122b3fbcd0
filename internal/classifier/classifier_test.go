package classifier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustcheck/pkg/domain"
)

// TestClassify_Sentinel verifies the absolute partition rule: identifiers
// starting with the company sentinel digit are companies and VAT-registered
// with no lookup; everything else is a dealer requiring a lookup.
func TestClassify_Sentinel(t *testing.T) {
	t.Run("sentinel digit means company, no lookup", func(t *testing.T) {
		for _, raw := range []string{"500000000", "512345678", "599999999"} {
			id, err := domain.ParseBusinessID(raw)
			require.NoError(t, err)

			c := Classify(id)
			assert.Equal(t, EntityCompany, c.EntityType, raw)
			assert.Equal(t, VATRegistered, c.VATStatus, raw)
			assert.False(t, c.RequiresLookup, raw)
		}
	})

	t.Run("every other first digit means dealer, lookup required", func(t *testing.T) {
		for d := 0; d <= 9; d++ {
			if d == 5 {
				continue
			}
			raw := fmt.Sprintf("%d12345678", d)
			id, err := domain.ParseBusinessID(raw)
			require.NoError(t, err)

			c := Classify(id)
			assert.Equal(t, EntityDealer, c.EntityType, raw)
			assert.Equal(t, VATExempt, c.VATStatus, raw)
			assert.True(t, c.RequiresLookup, raw)
		}
	})
}
