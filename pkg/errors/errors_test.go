package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractErrorFormatting(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewRender("glowshop", "JP", "navigation failed", underlying)

	assert.Contains(t, err.Error(), "[render]")
	assert.Contains(t, err.Error(), "glowshop/JP")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, underlying)
}

func TestExtractErrorWithoutCause(t *testing.T) {
	err := NewValidation("brand is required")
	assert.Contains(t, err.Error(), "[validation]")
	assert.NotContains(t, err.Error(), "%!v")
	assert.Nil(t, err.Unwrap())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  *ExtractError
		want bool
	}{
		{NewTimeout("glowshop", "US", 30 * time.Second), true},
		{NewRender("glowshop", "US", "launch failed", nil), true},
		{New(ErrorTypeNetwork, "glowshop", "US", "dns failure", nil), true},
		{NewScrape("glowshop", "US", "no product data", nil), false},
		{NewDiscovery("glowshop", "US", "no candidates", nil), false},
		{NewConfiguration("bad mode", nil), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.IsRetryable(), tt.err.Error())
	}
}
