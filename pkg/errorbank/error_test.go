package errorbank

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
		code   codes.Code
	}{
		{BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{Conflict("conflict"), http.StatusConflict, codes.AlreadyExists},
		{NotFound("missing"), http.StatusNotFound, codes.NotFound},
		{Unprocessable("nope"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{InsufficientStock("short"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{Internal("boom"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.StatusCode(), "kind %s", tt.err.Kind())
		assert.Equal(t, tt.code, tt.err.GRPCCode(), "kind %s", tt.err.Kind())
	}
}

func TestFromPreservesAppErrors(t *testing.T) {
	orig := InsufficientStock("only 2 left", WithDetail("available", 2))
	wrapped := From(orig)
	assert.Equal(t, KindInsufficientStock, wrapped.Kind())
	assert.Equal(t, 2, wrapped.Details()["available"])

	plain := From(errors.New("disk full"))
	assert.Equal(t, KindInternal, plain.Kind())
	assert.ErrorContains(t, plain, "internal error")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := Internal("failed to create order", WithCause(cause))
	assert.ErrorIs(t, err, cause)
}
