package feeders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envTarget struct {
	Name     string        `env:"NAME"`
	Enabled  bool          `env:"ENABLED"`
	Count    int           `env:"COUNT"`
	Ratio    float64       `env:"RATIO"`
	Timeout  time.Duration `env:"TIMEOUT"`
	Systems  []string      `env:"SYSTEMS"`
	Untagged string
	Nested   struct {
		Port int `env:"PORT"`
	}
}

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestEnvFeederFeed(t *testing.T) {
	f := EnvFeeder{Prefix: "app", Lookup: mapLookup(map[string]string{
		"APP_NAME":    "engine",
		"APP_ENABLED": "true",
		"APP_COUNT":   "42",
		"APP_RATIO":   "0.5",
		"APP_TIMEOUT": "1500ms",
		"APP_SYSTEMS": "render, ecs ,,scheduler",
		"APP_PORT":    "8080",
		"UNTAGGED":    "ignored",
	})}

	var target envTarget
	require.NoError(t, f.Feed(&target))

	assert.Equal(t, "engine", target.Name)
	assert.True(t, target.Enabled)
	assert.Equal(t, 42, target.Count)
	assert.InDelta(t, 0.5, target.Ratio, 1e-9)
	assert.Equal(t, 1500*time.Millisecond, target.Timeout)
	assert.Equal(t, []string{"render", "ecs", "scheduler"}, target.Systems)
	assert.Equal(t, 8080, target.Nested.Port)
	assert.Empty(t, target.Untagged)
}

func TestEnvFeederLeavesUnsetFields(t *testing.T) {
	f := EnvFeeder{Prefix: "APP", Lookup: mapLookup(map[string]string{"APP_NAME": ""})}

	target := envTarget{Name: "keep", Count: 3}
	require.NoError(t, f.Feed(&target))

	assert.Equal(t, "keep", target.Name)
	assert.Equal(t, 3, target.Count)
}

func TestEnvFeederConversionError(t *testing.T) {
	f := EnvFeeder{Prefix: "APP", Lookup: mapLookup(map[string]string{"APP_TIMEOUT": "soon"})}

	var target envTarget
	err := f.Feed(&target)
	assert.ErrorIs(t, err, ErrEnvConversion)
	assert.Contains(t, err.Error(), "APP_TIMEOUT")
}

func TestEnvFeederRejectsNonPointer(t *testing.T) {
	f := NewEnvFeeder("APP")
	assert.ErrorIs(t, f.Feed(envTarget{}), ErrEnvInvalidStructure)

	var nilTarget *envTarget
	assert.ErrorIs(t, f.Feed(nilTarget), ErrEnvInvalidStructure)
}

func TestEnvFeederVarName(t *testing.T) {
	assert.Equal(t, "GOGINE_LOG_LEVEL", EnvFeeder{Prefix: "gogine"}.VarName("log_level"))
	assert.Equal(t, "LOG_LEVEL", EnvFeeder{}.VarName("log_level"))
}
