package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReviewCurve(t *testing.T) {
	t.Parallel()

	intervals := []int{5, 30, 720}
	curve, err := NewReviewCurve(uuid.New(), " Short ", intervals, true)
	require.NoError(t, err)
	assert.Equal(t, "Short", curve.Name)
	assert.Equal(t, 3, curve.Stages())
	assert.True(t, curve.IsDefault)

	intervals[0] = 999
	assert.Equal(t, 5, curve.Intervals[0], "intervals must be copied")
}

func TestValidateIntervals(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateIntervals([]int{1}))
	assert.ErrorIs(t, ValidateIntervals(nil), ErrEmptyIntervals)
	assert.ErrorIs(t, ValidateIntervals([]int{5, 0}), ErrInvalidInterval)
	assert.ErrorIs(t, ValidateIntervals([]int{-1}), ErrInvalidInterval)
	assert.ErrorIs(t, ValidateIntervals(make([]int, MaxCurveIntervals+1)), ErrTooManyIntervals)
}

func TestReviewCurveValidate(t *testing.T) {
	t.Parallel()

	_, err := NewReviewCurve(uuid.Nil, "x", []int{5}, false)
	assert.ErrorIs(t, err, ErrEmptyUserID)

	_, err = NewReviewCurve(uuid.New(), "", []int{5}, false)
	assert.ErrorIs(t, err, ErrEmptyCurveName)
}
