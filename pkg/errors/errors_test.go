package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{429, true},
		{403, true},
		{0, false},
		{401, false},
		{404, false},
		{500, false},
		{503, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableStatusCode(tt.code))
		})
	}
}

func TestErrorsIsMatchesByType(t *testing.T) {
	err := NewTokenNotFound("csrf token not found")

	assert.True(t, stderrors.Is(err, ErrTokenNotFound))
	assert.False(t, stderrors.Is(err, ErrUnsupportedContent))
	assert.Equal(t, "csrf token not found", err.Error())
}

func TestStatusCodeWalksChain(t *testing.T) {
	httpErr := NewHTTPStatus(429, `{"message":"Please wait a few minutes"}`)
	wrapped := fmt.Errorf("attempt 2: %w", httpErr)
	fetchErr := NewFetchFailed(wrapped)
	lookupErr := NewLookup(fetchErr)

	assert.Equal(t, 429, StatusCode(httpErr))
	assert.Equal(t, 429, StatusCode(wrapped))
	assert.Equal(t, 429, StatusCode(lookupErr))
	assert.Equal(t, 0, StatusCode(stderrors.New("plain")))
	assert.Equal(t, 0, StatusCode(nil))
	assert.True(t, IsRetryable(wrapped))
}

func TestNewFetchFailedPrefersBody(t *testing.T) {
	t.Run("with body", func(t *testing.T) {
		err := NewFetchFailed(NewHTTPStatus(403, "forbidden body"))
		assert.Equal(t, "instagram request failed with retries: forbidden body", err.Error())
		assert.Equal(t, 403, err.Code)
		assert.True(t, stderrors.Is(err, ErrHTTPStatus))
	})

	t.Run("without body", func(t *testing.T) {
		err := NewFetchFailed(NewUnsupportedContent())
		assert.Equal(t, "instagram request failed with retries: unsupported type or private content", err.Error())
		assert.True(t, stderrors.Is(err, ErrFetchFailed))
		assert.True(t, stderrors.Is(err, ErrUnsupportedContent))
	})
}

func TestNewLookupPreservesCause(t *testing.T) {
	cause := NewFetchFailed(NewTokenNotFound("csrf token not found in cookie string"))
	err := NewLookup(cause)

	assert.Equal(t, "instagram error: instagram request failed with retries: csrf token not found in cookie string", err.Error())
	assert.True(t, stderrors.Is(err, ErrLookup))
	assert.True(t, stderrors.Is(err, ErrTokenNotFound))
	assert.Equal(t, ErrorTypeLookup, GetType(err))

	var fetchErr *Error
	assert.True(t, stderrors.As(err.Unwrap(), &fetchErr))
	assert.Equal(t, ErrorTypeFetchFailed, fetchErr.Type)
}
