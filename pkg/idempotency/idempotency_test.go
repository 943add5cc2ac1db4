package idempotency

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreClaim(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	ok, err := s.Claim(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.Claim(ctx, "k1", time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = s.Claim(ctx, "k1", time.Minute)
	assert.True(t, ok, "expired key can be claimed again")

	require.NoError(t, s.Release(ctx, "k1"))
	ok, _ = s.Claim(ctx, "k1", time.Minute)
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/orders", nil)
	r.Header.Set(Header, "  abc  ")
	assert.Equal(t, "abc", Key(r))
	assert.Equal(t, "7:abc", ScopedKey(7, "abc"))
}
