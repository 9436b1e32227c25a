package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var got []string
	require.False(t, c.Get(ctx, "products", "k", &got))

	c.Set(ctx, "products", "k", []string{"a", "b"})
	require.True(t, c.Get(ctx, "products", "k", &got))
	require.Equal(t, []string{"a", "b"}, got)

	c.Set(ctx, "factories", "k", []string{"x"})
	c.Invalidate(ctx, "products")
	require.Zero(t, c.Len("products"))
	require.Equal(t, 1, c.Len("factories"))
}

func TestKeyOfIsStable(t *testing.T) {
	type filter struct {
		Category string
		Page     int
	}
	require.Equal(t, KeyOf(filter{"textiles", 1}), KeyOf(filter{"textiles", 1}))
	require.NotEqual(t, KeyOf(filter{"textiles", 1}), KeyOf(filter{"textiles", 2}))
}
