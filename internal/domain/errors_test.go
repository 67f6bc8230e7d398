package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigErrorKinds(t *testing.T) {
	t.Parallel()

	missing := ErrMissingVar("DATABASE_URL")
	assert.Equal(t, MissingRequiredVar, missing.Kind)
	assert.Contains(t, missing.Error(), "DATABASE_URL")

	insecure := ErrInsecureSecret("JWT_SECRET", 32)
	assert.Equal(t, InsecureSecret, insecure.Kind)
	assert.Contains(t, insecure.Error(), "32")
}

func TestPoolFaultUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	fault := ErrPoolFault(fmt.Errorf("dial: %w", cause))
	assert.ErrorIs(t, fault, cause)

	var target *PoolFaultError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", fault), &target))
}

func TestPoolExhaustedCarriesTimeout(t *testing.T) {
	t.Parallel()

	err := ErrPoolExhausted(5 * time.Second)
	assert.Equal(t, 5*time.Second, err.Timeout)
	assert.Contains(t, err.Error(), "5s")
}
