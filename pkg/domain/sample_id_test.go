package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "biorempp/pkg/domain-errors"
)

func TestNewSampleID_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple name", "Sample1", "Sample1", false},
		{"full charset", "soil_A-1.rep2", "soil_A-1.rep2", false},
		{"surrounding whitespace trimmed", "  S1  ", "S1", false},
		{"max length accepted", strings.Repeat("a", MaxSampleIDLength), strings.Repeat("a", MaxSampleIDLength), false},

		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"interior space", "sample one", "", true},
		{"html markup", "<script>alert(1)</script>", "", true},
		{"path traversal", "../../etc/passwd", "", true},
		{"null byte", "S1\x00", "", true},
		{"over max length", strings.Repeat("a", MaxSampleIDLength+1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewSampleID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, id.String())
			}
		})
	}
}

func TestSampleID_ValueSemantics(t *testing.T) {
	a := MustSampleID("S1")
	b := MustSampleID("S1")
	assert.Equal(t, a, b)

	counts := map[SampleID]int{a: 1}
	counts[b]++
	assert.Equal(t, 2, counts[a])
}

func TestMustSampleID_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustSampleID("") })
}
