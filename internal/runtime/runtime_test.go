package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modkit/internal/registry"
	"github.com/vk/modkit/internal/resolver"
	"github.com/vk/modkit/module"
)

// A small constellation of test modules: a store at the bottom, a cache
// that defaults the store into existence, an api on top of the cache and
// a ui with only an optional interest in the store.

type storeMod struct {
	configured int
	unloaded   int
}

func (*storeMod) Dependencies() []module.Dependency { return nil }
func (m *storeMod) Configure(ctx context.Context) error {
	m.configured++
	return nil
}
func (m *storeMod) Unload(ctx context.Context) error {
	m.unloaded++
	return nil
}

type cacheMod struct {
	store      *storeMod
	configured int
}

func (m *cacheMod) Dependencies() []module.Dependency {
	return []module.Dependency{
		module.Needs(&m.store, module.WithDefault(func() module.Module { return &storeMod{} })),
	}
}
func (m *cacheMod) Configure(ctx context.Context) error {
	m.configured++
	if m.store == nil {
		return errors.New("cache configured without its store")
	}
	return nil
}

type apiMod struct {
	cache *cacheMod
}

func (m *apiMod) Dependencies() []module.Dependency {
	return []module.Dependency{module.Needs(&m.cache)}
}

type uiMod struct {
	store *storeMod
}

func (m *uiMod) Dependencies() []module.Dependency {
	return []module.Dependency{module.Needs(&m.store, module.AsOptional())}
}

func TestLoadAndLookup(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	store := &storeMod{}
	cache := &cacheMod{}
	require.NoError(t, c.Load(ctx, cache, store))

	// Lookup reflects the load synchronously.
	gotStore, ok := registry.Get[*storeMod](c.Anchor())
	require.True(t, ok)
	assert.Same(t, store, gotStore)

	gotCache, ok := registry.Get[*cacheMod](c.Anchor())
	require.True(t, ok)
	assert.Same(t, cache, gotCache)

	// The supplied store was injected, not a default-made one.
	assert.Same(t, store, cache.store)
	assert.Equal(t, 1, store.configured)
	assert.Equal(t, 1, cache.configured)

	loaded := c.Loaded()
	require.Len(t, loaded, 2)
	assert.Same(t, store, loaded[0], "leaf must load first")
}

func TestLoadDefaultsImplicitly(t *testing.T) {
	t.Parallel()

	c := New()
	cache := &cacheMod{}
	require.NoError(t, c.Load(context.Background(), cache))

	// Exactly one store exists, created by the resolver.
	got, ok := registry.Get[*storeMod](c.Anchor())
	require.True(t, ok)
	assert.Same(t, got, cache.store)
	assert.Equal(t, 1, got.configured, "implicit modules get the full lifecycle")
}

func TestLoadDuplicateSubmission(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("same instance twice in one batch", func(t *testing.T) {
		c := New()
		store := &storeMod{}
		err := c.Load(ctx, store, store)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateSubmission)
	})

	t.Run("resubmission after load", func(t *testing.T) {
		c := New()
		store := &storeMod{}
		require.NoError(t, c.Load(ctx, store))
		err := c.Load(ctx, store)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateSubmission)
	})

	t.Run("instances are one-shot even after unload", func(t *testing.T) {
		c := New()
		store := &storeMod{}
		require.NoError(t, c.Load(ctx, store))
		require.NoError(t, c.Unload(ctx, store))
		err := c.Load(ctx, store)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateSubmission)

		// A fresh instance of the same type is fine.
		require.NoError(t, c.Load(ctx, &storeMod{}))
	})
}

type cycleX struct{ y *cycleY }

func (m *cycleX) Dependencies() []module.Dependency {
	return []module.Dependency{module.Needs(&m.y)}
}

type cycleY struct{ x *cycleX }

func (m *cycleY) Dependencies() []module.Dependency {
	return []module.Dependency{module.Needs(&m.x)}
}

func TestLoadSurfacesCycle(t *testing.T) {
	t.Parallel()

	c := New()
	err := c.Load(context.Background(), &cycleX{}, &cycleY{})
	require.Error(t, err)

	var cycleErr *resolver.CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, 0, c.Anchor().Len(), "a failed batch must not leak partial state")
}

type brokenMod struct{}

func (*brokenMod) Dependencies() []module.Dependency { return nil }
func (*brokenMod) Configure(ctx context.Context) error {
	return errors.New("refusing to start")
}

func TestLoadConfigureFailure(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	store := &storeMod{}
	require.NoError(t, c.Load(ctx, store))

	err := c.Load(ctx, &brokenMod{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to start")

	// The broken module is not stored; earlier state is untouched.
	_, ok := registry.Get[*brokenMod](c.Anchor())
	assert.False(t, ok)
	_, ok = registry.Get[*storeMod](c.Anchor())
	assert.True(t, ok)
}

func TestLoadConfigureFailureStillBindsOptionals(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	ui := &uiMod{}
	require.NoError(t, c.Load(ctx, ui))
	require.Nil(t, ui.store)

	// The store configures before the broken module fails and stays
	// loaded, so the earlier ui's optional binding must still pick it up.
	store := &storeMod{}
	err := c.Load(ctx, store, &brokenMod{})
	require.Error(t, err)

	_, ok := registry.Get[*storeMod](c.Anchor())
	require.True(t, ok)
	assert.Same(t, store, ui.store)
}

func TestUnloadRefusesHardDependents(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	store := &storeMod{}
	cache := &cacheMod{}
	api := &apiMod{}
	require.NoError(t, c.Load(ctx, store, cache, api))

	err := c.Unload(ctx, cache)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHasDependents)
	assert.Contains(t, err.Error(), "apiMod")

	// Still loaded and still queryable.
	_, ok := registry.Get[*cacheMod](c.Anchor())
	assert.True(t, ok)

	// Removing the dependent first unblocks the unload.
	require.NoError(t, c.Unload(ctx, api))
	require.NoError(t, c.Unload(ctx, cache))
}

func TestUnloadOptionalDependentSurvives(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	store := &storeMod{}
	ui := &uiMod{}
	require.NoError(t, c.Load(ctx, store, ui))
	require.Same(t, store, ui.store)

	require.NoError(t, c.Unload(ctx, store))

	// The optional dependent stays loaded and observes absence.
	_, ok := registry.Get[*uiMod](c.Anchor())
	assert.True(t, ok)
	assert.Nil(t, ui.store, "optional binding must be cleared on unload")
	_, ok = registry.Get[*storeMod](c.Anchor())
	assert.False(t, ok)
	assert.Equal(t, 1, store.unloaded, "teardown hook runs once")
}

func TestUnloadNotLoaded(t *testing.T) {
	t.Parallel()

	c := New()
	err := c.Unload(context.Background(), &storeMod{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestUnloadCascadesImplicitDefaults(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	cache := &cacheMod{}
	require.NoError(t, c.Load(ctx, cache))

	implicitStore, ok := registry.Get[*storeMod](c.Anchor())
	require.True(t, ok)

	require.NoError(t, c.Unload(ctx, cache))

	// The implicitly created store had no other dependents: gone.
	_, ok = registry.Get[*storeMod](c.Anchor())
	assert.False(t, ok)
	assert.Equal(t, 1, implicitStore.unloaded)
	assert.Empty(t, c.Loaded())
}

func TestUnloadKeepsImplicitWithRemainingDependents(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	cache := &cacheMod{}
	ui := &uiMod{}
	require.NoError(t, c.Load(ctx, cache, ui))

	// ui optionally binds the implicit store, so unloading cache must
	// leave the store in place.
	require.NotNil(t, ui.store)
	require.NoError(t, c.Unload(ctx, cache))

	_, ok := registry.Get[*storeMod](c.Anchor())
	assert.True(t, ok, "implicit module with a live dependent must survive")

	// Once the last dependent goes, so does the implicit module.
	require.NoError(t, c.Unload(ctx, ui))
	_, ok = registry.Get[*storeMod](c.Anchor())
	assert.False(t, ok)
}

func TestExplicitModulesNeverCascade(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	store := &storeMod{}
	cache := &cacheMod{}
	require.NoError(t, c.Load(ctx, store, cache))
	require.NoError(t, c.Unload(ctx, cache))

	// The store was supplied by the caller, not implicitly created; it
	// stays loaded even with zero dependents.
	_, ok := registry.Get[*storeMod](c.Anchor())
	assert.True(t, ok)
}
