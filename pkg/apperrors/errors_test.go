package apperrors

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"validation", NewValidationError("bad input"), false},
		{"not found", NewNotFoundError("no such job"), false},
		{"invalid state", NewInvalidStateError("already completed"), false},
		{"unauthorized", NewUnauthorizedError("no token"), false},
		{"unsupported media", NewUnsupportedMediaError(nil, "not a video"), false},
		{"encoding", NewEncodingError(errors.New("exit 1"), "encoder failed"), true},
		{"transient io", NewTransientIOError(errors.New("timeout"), "s3 put failed"), true},
		{"unclassified", errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.retryable, Retryable(tc.err))
		})
	}
}

func TestRetryableWrapped(t *testing.T) {
	err := errors.Wrap(NewUnsupportedMediaError(nil, "no video stream"), "probe")
	require.False(t, Retryable(err))
	require.True(t, IsUnsupportedMedia(err))
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, HTTPStatus(NewValidationError("x")))
	require.Equal(t, http.StatusNotFound, HTTPStatus(NewNotFoundError("x")))
	require.Equal(t, http.StatusConflict, HTTPStatus(NewInvalidStateError("x")))
	require.Equal(t, http.StatusUnauthorized, HTTPStatus(NewUnauthorizedError("x")))
	require.Equal(t, http.StatusUnsupportedMediaType, HTTPStatus(NewUnsupportedMediaError(nil, "x")))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestMessageHidesInternals(t *testing.T) {
	require.Equal(t, "internal server error", Message(errors.New("pq: connection refused")))
	require.Equal(t, "file too large", Message(NewValidationError("file too large")))
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := NewEncodingError(errors.New("exit status 1"), "ffmpeg failed for 720p")
	require.Equal(t, "ffmpeg failed for 720p: exit status 1", err.Error())
	require.EqualError(t, errors.Cause(err.Unwrap()), "exit status 1")
}
