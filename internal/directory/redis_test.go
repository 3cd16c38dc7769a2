package directory

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestWrapBreakerErrPassesThroughNil(t *testing.T) {
	assert.NoError(t, wrapBreakerErr(nil))
}

func TestWrapBreakerErrMarksOpenStateAsUnavailable(t *testing.T) {
	err := wrapBreakerErr(gobreaker.ErrOpenState)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWrapBreakerErrMarksTooManyRequestsAsUnavailable(t *testing.T) {
	err := wrapBreakerErr(gobreaker.ErrTooManyRequests)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWrapBreakerErrPassesThroughOtherErrors(t *testing.T) {
	underlying := errors.New("connection refused")
	err := wrapBreakerErr(underlying)
	assert.ErrorIs(t, err, underlying)
	assert.False(t, errors.Is(err, ErrUnavailable))
}
