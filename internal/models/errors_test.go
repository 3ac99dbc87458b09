package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("bad"), fiber.StatusBadRequest},
		{"conflict", NewConflictError("dup"), fiber.StatusConflict},
		{"unauthorized", NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{"forbidden", NewForbiddenError("no"), fiber.StatusForbidden},
		{"rate limited", NewRateLimitedError(), fiber.StatusTooManyRequests},
		{"not found", NewNotFoundError("Post", 7), fiber.StatusNotFound},
		{"internal", NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
		{"wrapped app error", fmt.Errorf("ctx: %w", NewForbiddenError("no")), fiber.StatusForbidden},
		{"plain error", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestOrphanedIdentityError(t *testing.T) {
	cause := errors.New("delete failed")
	err := NewOrphanedIdentityError(42, cause)

	assert.True(t, IsOrphaned(err))
	assert.True(t, HasCode(err, CodeInternal))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, uint(42), err.UserID)
	assert.False(t, IsOrphaned(NewInternalError(cause)))
}
