package infra

import (
	"testing"

	"storefront-gateway/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_SelectsAlgorithm(t *testing.T) {
	s, err := NewStore("", DefaultAdaptiveConfig(), 0)
	require.NoError(t, err)
	assert.IsType(t, &AdaptiveStore{}, s)

	s, err = NewStore(" Bucket ", AdaptiveConfig{BurstAllowance: 3}, 5)
	require.NoError(t, err)
	b, ok := s.(*BucketStore)
	require.True(t, ok)
	assert.Equal(t, 3, b.Burst())
	assert.Equal(t, 5.0, b.RPS())
	assert.Equal(t, DefaultAdaptiveConfig().EvictAfter(), b.idleTTL)
}

func TestNewStore_UnknownAlgorithm(t *testing.T) {
	_, err := NewStore("leaky", AdaptiveConfig{}, 1)
	require.Error(t, err)
	assert.True(t, domain.IsInvalidConfig(err))
}
