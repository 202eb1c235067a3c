package echoapi

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
)

func Test_isNotFound(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  bool
	}{
		{"user", user.ErrNotFound, true},
		{"activity", activity.ErrNotFound, true},
		{"routine", routine.ErrNotFound, true},
		{"link", routine.ErrNotLinked, true},
		{"forbidden", core.ErrForbidden, false},
		{"other", errors.New("activity not found"), false},
		{"validator errors", validator.ValidationErrors{}, false},
		{"validation error", core.NewValidationError(nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, isNotFound(tt.cause))
			})
		})
	}
}
