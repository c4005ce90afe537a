package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "biorempp/pkg/domain-errors"
)

// TestParseKO_Invariants validates the construction invariant:
// a KO is the letter 'K' followed by exactly five digits.
func TestParseKO_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid lower bound", "K00001", false},
		{"valid upper bound", "K99999", false},
		{"valid all zeros", "K00000", false},

		{"empty string", "", true},
		{"lowercase k", "k00001", true},
		{"wrong prefix letter", "C00001", true},
		{"too short", "K0001", true},
		{"too long", "K000011", true},
		{"letter among digits", "K0000A", true},
		{"unicode digit lookalike", "K０００１1", true},
		{"whitespace padded", " K00001", true},
		{"injection attempt", "K';DROP", true},
		{"oversized input", "K" + strings.Repeat("1", 500), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ko, err := ParseKO(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidIdentifier))
				assert.True(t, ko.IsZero())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.input, ko.String())
			}
		})
	}
}

// TestParseKO_FirstFailureWins pins the rule ordering so error messages stay
// deterministic for a given input.
func TestParseKO_FirstFailureWins(t *testing.T) {
	_, err := ParseKO("X1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with 'K'")

	_, err = ParseKO("K1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 6 characters")

	_, err = ParseKO("K1234X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "5 digits")
}

func TestKO_ValueSemantics(t *testing.T) {
	a := MustKO("K00001")
	b := MustKO("K00001")
	c := MustKO("K00002")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Usable as a map key by the literal string.
	seen := map[KO]int{a: 1}
	seen[b]++
	assert.Equal(t, 2, seen[a])
}

func TestMustKO_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustKO("bogus") })
	assert.NotPanics(t, func() { MustKO("K12345") })
}
