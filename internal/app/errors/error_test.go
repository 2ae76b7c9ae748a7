package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorStatusCodes(t *testing.T) {
	testCases := []struct {
		name   string
		err    *AppError
		status int
		kind   Kind
	}{
		{"validation", NewValidationError("bad"), http.StatusBadRequest, KindValidation},
		{"unauthorized", NewUnauthorizedError(), http.StatusUnauthorized, KindUnauthorized},
		{"forbidden", NewForbiddenError("nope"), http.StatusForbidden, KindForbidden},
		{"not_found", NewNotFoundError("missing"), http.StatusNotFound, KindNotFound},
		{"conflict", NewConflictError("dup"), http.StatusConflict, KindConflict},
		{"exhausted", NewExhaustedError("gone"), http.StatusGone, KindExhausted},
		{"scope_mismatch", NewScopeMismatchError("wrong course"), http.StatusUnprocessableEntity, KindScopeMismatch},
		{"too_many_requests", NewTooManyRequestsError("slow down", 10, 0), http.StatusTooManyRequests, KindTooManyRequests},
		{"store_unavailable", NewStoreUnavailableError(fmt.Errorf("dial tcp"), "store down"), http.StatusServiceUnavailable, KindStoreUnavailable},
		{"internal", NewInternalServerError(fmt.Errorf("boom"), "oops"), http.StatusInternalServerError, KindInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.StatusCode)
			assert.Equal(t, tc.kind, tc.err.Kind)
			assert.True(t, IsKind(tc.err, tc.kind))
		})
	}
}

func TestKindOfWrappedError(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := fmt.Errorf("redeem: %w", NewStoreUnavailableError(cause, "store down"))

	assert.True(t, IsStoreUnavailable(err))
	assert.False(t, IsExhausted(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(stderrors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestAppErrorMessage(t *testing.T) {
	err := NewConflictError("Coupon code already exists")
	assert.Equal(t, "Coupon code already exists", err.Error())

	err.WithCause(stderrors.New("duplicate key"))
	assert.Equal(t, "Coupon code already exists: duplicate key", err.Error())
}
