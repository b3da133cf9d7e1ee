package location

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(NewInMemory())

	t.Run("same pair resolves to the same location", func(t *testing.T) {
		first, err := registry.Resolve(ctx, "Centre", "Belvedere")
		require.NoError(t, err)
		require.NotNil(t, first)

		second, err := registry.Resolve(ctx, "Centre", "Belvedere")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("whitespace is trimmed before matching", func(t *testing.T) {
		canonical, err := registry.Resolve(ctx, "Nord", "Ariana")
		require.NoError(t, err)

		padded, err := registry.Resolve(ctx, "  Nord ", " Ariana  ")
		require.NoError(t, err)
		assert.Equal(t, canonical.ID, padded.ID)
	})

	t.Run("a blank pair is no location, not an empty one", func(t *testing.T) {
		loc, err := registry.Resolve(ctx, "", "   ")
		require.NoError(t, err)
		assert.Nil(t, loc)
	})

	t.Run("partial pairs are still locations", func(t *testing.T) {
		loc, err := registry.Resolve(ctx, "Sud", "")
		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.Equal(t, "Sud", loc.Region)
		assert.Empty(t, loc.SubRegion)
	})
}

func TestResolveConcurrent(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(NewInMemory())

	const callers = 32
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loc, err := registry.Resolve(ctx, "Centre", "Lafayette")
			if err == nil && loc != nil {
				ids[i] = loc.ID.String()
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i], "all callers must converge on one location")
	}
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(NewInMemory())

	for _, pair := range [][2]string{
		{"Centre", "Belvedere"},
		{"Centre", "Lafayette"},
		{"Nord", "Ariana"},
	} {
		_, err := registry.Resolve(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}

	regions, err := registry.Regions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Centre", "Nord"}, regions)

	subRegions, err := registry.SubRegions(ctx, "Centre")
	require.NoError(t, err)
	assert.Equal(t, []string{"Belvedere", "Lafayette"}, subRegions)

	empty, err := registry.SubRegions(ctx, "Ouest")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
