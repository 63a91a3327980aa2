package service

import (
	"errors"
	"testing"

	"github.com/phrazzld/recall-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	t.Parallel()
	all := []error{ErrNotOwned, ErrInvalidCredentials, ErrDefaultCurveInUse}
	for i, a := range all {
		for j, b := range all {
			assert.Equal(t, i == j, errors.Is(a, b), "%v vs %v", a, b)
		}
	}
}

func TestServiceError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		service  string
		op       string
		err      error
		expected string
	}{
		{
			name:     "with underlying error",
			service:  "user",
			op:       "create",
			err:      errors.New("database connection failed"),
			expected: "user service create operation failed: database connection failed",
		},
		{
			name:     "without underlying error",
			service:  "curve",
			op:       "delete",
			expected: "curve service delete operation failed",
		},
		{
			name:     "empty service name",
			op:       "update",
			err:      errors.New("validation failed"),
			expected: "update operation failed: validation failed",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NewServiceError(tt.service, tt.op, tt.err).Error())
		})
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	t.Parallel()
	err := NewServiceError("notebook", "get", store.ErrNotebookNotFound)
	assert.ErrorIs(t, err, store.ErrNotebookNotFound)
	assert.True(t, store.IsNotFoundError(err))

	var svcErr *ServiceError
	assert.True(t, errors.As(fmtWrap(err), &svcErr))
	assert.Equal(t, "get", svcErr.Operation)
}

func fmtWrap(err error) error {
	return errors.Join(errors.New("outer"), err)
}
