package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageIncludesInternal(t *testing.T) {
	base := New("TEST", "something broke", http.StatusBadGateway)
	require.Equal(t, "something broke", base.Error())

	wrapped := base.WithInternal(errors.New("dial tcp: refused"))
	require.Contains(t, wrapped.Error(), "dial tcp: refused")
	require.Equal(t, base.Code, wrapped.Code)

	// the original must stay untouched
	require.Nil(t, base.Internal)
}

func TestFromErrorUnwrapsAppError(t *testing.T) {
	inner := ErrStorageUnavailable.WithInternal(errors.New("quota exceeded"))
	chained := fmt.Errorf("save snapshot: %w", inner)

	got := FromError(chained)
	require.Equal(t, ErrStorageUnavailable.Code, got.Code)

	generic := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.ErrorContains(t, generic, "boom")

	require.Nil(t, FromError(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(cause, "persist proposals")

	require.True(t, errors.Is(wrapped, cause))
	require.Equal(t, http.StatusInternalServerError, wrapped.StatusCode)
}
