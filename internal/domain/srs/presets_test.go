package srs

import (
	"strings"
	"testing"

	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePresets(t *testing.T) {
	t.Parallel()

	doc := `
curves:
  - name: " Exam cram "
    intervals: [10, 60, 240]
    default: true
  - name: Slow
    intervals: [1440, 4320]
`
	presets, err := DecodePresets(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "Exam cram", presets[0].Name)
	assert.True(t, presets[0].Default)
	assert.Equal(t, []int{1440, 4320}, presets[1].Intervals)
}

func TestDecodePresets_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"bad interval":  "curves:\n  - name: a\n    intervals: [0]\n",
		"no name":       "curves:\n  - intervals: [5]\n",
		"duplicate":     "curves:\n  - name: a\n    intervals: [5]\n  - name: A\n    intervals: [5]\n",
		"two defaults":  "curves:\n  - name: a\n    intervals: [5]\n    default: true\n  - name: b\n    intervals: [5]\n    default: true\n",
		"unknown field": "curves:\n  - name: a\n    intervals: [5]\n    colour: red\n",
	}
	for name, doc := range tests {
		doc := doc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodePresets(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}

	_, err := DecodePresets(strings.NewReader("curves:\n  - name: a\n    intervals: []\n"))
	assert.ErrorIs(t, err, domain.ErrEmptyIntervals)
}

func TestDecodePresets_Empty(t *testing.T) {
	t.Parallel()

	presets, err := DecodePresets(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, presets)
}

func TestSeedPresets(t *testing.T) {
	t.Parallel()

	seeded := SeedPresets(nil, nil)
	require.Len(t, seeded, 1)
	assert.Equal(t, StandardCurveName, seeded[0].Name)
	assert.True(t, seeded[0].Default)

	seeded = SeedPresets(nil, []Preset{{Name: "Cram", Intervals: []int{1}, Default: true}})
	require.Len(t, seeded, 2)
	assert.False(t, seeded[0].Default)
	assert.True(t, seeded[1].Default)

	seeded = SeedPresets(nil, []Preset{{Name: "standard", Intervals: []int{3, 6}}})
	require.Len(t, seeded, 1)
	assert.Equal(t, []int{3, 6}, seeded[0].Intervals)
	assert.True(t, seeded[0].Default)
}
