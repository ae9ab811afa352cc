package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	errTooLow := New(ErrValidation, "bid too low")

	assert.ErrorIs(t, errTooLow, ErrValidation)
	assert.NotErrorIs(t, errTooLow, ErrNotFound)
	assert.Equal(t, "validation failed: bid too low", errTooLow.Error())
}

func TestRemote(t *testing.T) {
	cause := errors.New("connection reset")

	err := Remote("failed to list items", cause)

	assert.ErrorIs(t, err, ErrRemote)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to list items")
	assert.NoError(t, Remote("noop", nil))
}

func TestIs(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		categories []error
		want       bool
	}{
		{"matches single", New(ErrNotFound, "item"), []error{ErrNotFound}, true},
		{"matches one of many", New(ErrConflict, "race"), []error{ErrValidation, ErrConflict}, true},
		{"no match", New(ErrForbidden, "owner"), []error{ErrValidation, ErrNotFound}, false},
		{"nil error", nil, []error{ErrValidation}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Is(tt.err, tt.categories...))
		})
	}
}
