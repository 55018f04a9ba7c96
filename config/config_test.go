package config_test

import (
	"testing"

	"github.com/mxphp/corevm/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.NewDefault()
	assert.Equal(t, int64(2<<20), c.GetInt("gc.nursery_bytes"))
	assert.Equal(t, 0.9, c.GetFloat("gc.minor_threshold"))
	assert.False(t, c.GetBool("debug.refcount_checks"))
}

func TestTypeMismatchPanics(t *testing.T) {
	c := config.NewDefault()
	assert.Panics(t, func() { c.GetBool("gc.nursery_bytes") })
}

func TestMissingKeyPanics(t *testing.T) {
	c := config.New()
	assert.Panics(t, func() { c.GetInt("nope") })
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	data := []byte(`
gc.nursery_bytes: 4194304
gc.minor_threshold: 0.8
debug.refcount_checks: true
`)
	c, err := config.LoadYAML(data)
	require.NoError(t, err)
	assert.Equal(t, int64(4194304), c.GetInt("gc.nursery_bytes"))
	assert.Equal(t, 0.8, c.GetFloat("gc.minor_threshold"))
	assert.True(t, c.GetBool("debug.refcount_checks"))
	// untouched default survives
	assert.Equal(t, int64(2), c.GetInt("gc.promotion_age"))
}
