package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustcheck/pkg/domain-errors"
)

// TestParseBusinessID_Invariants validates the parsing invariant:
// "business IDs must be exactly nine ASCII digits".
func TestParseBusinessID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseBusinessID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseBusinessID("12345678")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = ParseBusinessID("1234567890")
		require.Error(t, err)
	})

	t.Run("rejects non-digits", func(t *testing.T) {
		_, err := ParseBusinessID("51234567a")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts nine digits", func(t *testing.T) {
		id, err := ParseBusinessID("512345678")
		require.NoError(t, err)
		assert.Equal(t, BusinessID("512345678"), id)
		assert.Equal(t, byte('5'), id.FirstDigit())
	})
}

func TestParseSource(t *testing.T) {
	t.Run("accepts fetchable sources", func(t *testing.T) {
		for _, s := range FetchableSources() {
			got, err := ParseSource(s.String())
			require.NoError(t, err)
			assert.Equal(t, s, got)
		}
	})

	t.Run("rejects provenance-only values", func(t *testing.T) {
		_, err := ParseSource("cache")
		require.Error(t, err)
		_, err = ParseSource("fallback")
		require.Error(t, err)
	})

	t.Run("every fact type maps to a fetchable source", func(t *testing.T) {
		for _, f := range []FactType{FactIdentity, FactLegal, FactEnforcement, FactVAT, FactBank} {
			assert.Contains(t, FetchableSources(), f.SourceFor())
		}
	})
}
