package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modkit/internal/registry"
	"github.com/vk/modkit/module"
)

type greetProvider struct{}

func (*greetProvider) Dependencies() []module.Dependency { return nil }
func (*greetProvider) ProvidedValues() []module.Value {
	return []module.Value{{Name: "greeting", Value: "hello"}}
}

type politeProvider struct{}

func (*politeProvider) Dependencies() []module.Dependency { return nil }
func (*politeProvider) ProvidedValues() []module.Value {
	return []module.Value{
		{Name: "greeting", Value: "good day"},
		{Name: "farewell", Value: "bye"},
	}
}

type greetCollector struct {
	updates  int
	greeting []any
}

func (*greetCollector) Dependencies() []module.Dependency { return nil }
func (*greetCollector) CollectedNames() []string          { return []string{"greeting"} }
func (m *greetCollector) UpdateCollected(name string, values []any) {
	m.updates++
	m.greeting = values
}

func TestCollectorSeesProvidersLoadedBefore(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	require.NoError(t, c.Load(ctx, &greetProvider{}))

	col := &greetCollector{}
	require.NoError(t, c.Load(ctx, col))

	assert.Equal(t, []any{"hello"}, col.greeting)
}

func TestProviderLoadedAfterCollectorPropagates(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	col := &greetCollector{}
	require.NoError(t, c.Load(ctx, col))
	assert.Empty(t, col.greeting)

	// Loading a provider later updates the collector's view without the
	// collector being resubmitted.
	require.NoError(t, c.Load(ctx, &greetProvider{}))
	assert.Equal(t, []any{"hello"}, col.greeting)

	// A second provider extends the view in load order.
	require.NoError(t, c.Load(ctx, &politeProvider{}))
	assert.Equal(t, []any{"hello", "good day"}, col.greeting)
}

func TestUnloadShrinksCollectedView(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	first := &greetProvider{}
	second := &politeProvider{}
	col := &greetCollector{}
	require.NoError(t, c.Load(ctx, first, second, col))
	require.Equal(t, []any{"hello", "good day"}, col.greeting)

	require.NoError(t, c.Unload(ctx, first))
	assert.Equal(t, []any{"good day"}, col.greeting)

	require.NoError(t, c.Unload(ctx, second))
	assert.Empty(t, col.greeting)
}

func TestUnrelatedSlotDoesNotTouchCollector(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	col := &greetCollector{}
	require.NoError(t, c.Load(ctx, col))
	baseline := col.updates

	// politeProvider also publishes "farewell"; the collector subscribes
	// only to "greeting" and must receive exactly one update for it.
	require.NoError(t, c.Load(ctx, &politeProvider{}))
	assert.Equal(t, baseline+1, col.updates)
}

func TestConfigureFailurePropagatesEarlierBatchProviders(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	col := &greetCollector{}
	require.NoError(t, c.Load(ctx, col))

	// The provider configures before the broken module fails and stays
	// loaded, so the collector's view must grow even though the batch
	// errored.
	err := c.Load(ctx, &greetProvider{}, &brokenMod{})
	require.Error(t, err)

	_, ok := registry.Get[*greetProvider](c.Anchor())
	require.True(t, ok, "earlier batch member stays loaded")
	assert.Equal(t, []any{"hello"}, col.greeting)
}

func TestBatchLoadDeliversOneConsistentView(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	// Collector and provider in one batch, collector first in submission
	// order: after the batch the view must include the provider.
	col := &greetCollector{}
	require.NoError(t, c.Load(ctx, col, &greetProvider{}))
	assert.Equal(t, []any{"hello"}, col.greeting)
}
