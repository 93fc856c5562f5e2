package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type clockSettings struct {
	Format string `cty:"format"`
	UTC    bool   `cty:"utc"`
	Count  int    `cty:"count"`
}

func TestDecodeSettings(t *testing.T) {
	t.Parallel()

	obj := cty.ObjectVal(map[string]cty.Value{
		"format": cty.StringVal("15:04"),
		"utc":    cty.True,
		"count":  cty.NumberIntVal(3),
	})

	var s clockSettings
	require.NoError(t, DecodeSettings(obj, &s))
	assert.Equal(t, "15:04", s.Format)
	assert.True(t, s.UTC)
	assert.Equal(t, 3, s.Count)
}

func TestDecodeSettingsPartial(t *testing.T) {
	t.Parallel()

	s := clockSettings{Format: "prefilled", Count: 7}
	obj := cty.ObjectVal(map[string]cty.Value{
		"utc": cty.True,
	})
	require.NoError(t, DecodeSettings(obj, &s))
	assert.Equal(t, "prefilled", s.Format, "absent attributes leave defaults alone")
	assert.Equal(t, 7, s.Count)
	assert.True(t, s.UTC)
}

func TestDecodeSettingsNil(t *testing.T) {
	t.Parallel()

	s := clockSettings{Format: "kept"}
	require.NoError(t, DecodeSettings(cty.NilVal, &s))
	assert.Equal(t, "kept", s.Format)
}

func TestDecodeSettingsErrors(t *testing.T) {
	t.Parallel()

	t.Run("non-object settings", func(t *testing.T) {
		var s clockSettings
		err := DecodeSettings(cty.StringVal("oops"), &s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be an object")
	})

	t.Run("non-pointer target", func(t *testing.T) {
		err := DecodeSettings(cty.EmptyObjectVal, clockSettings{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pointer to struct")
	})

	t.Run("type mismatch", func(t *testing.T) {
		var s clockSettings
		obj := cty.ObjectVal(map[string]cty.Value{
			"count": cty.StringVal("not a number"),
		})
		err := DecodeSettings(obj, &s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `setting "count"`)
	})
}
