package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Defaults()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 6, cfg.Gossip.MinTotalChoices)
	assert.Equal(t, "prune", cfg.Gossip.Retention.Policy)
	assert.Equal(t, 20, cfg.Gossip.ListDefaultLimit)
	assert.Equal(t, 30.0, cfg.Gossip.Rules.BetrayalMaxLoyalty)
	assert.Equal(t, 30*24*time.Hour, cfg.Gossip.Rules.ReturningMinGap)
	assert.Contains(t, cfg.Gossip.Aliases.Slot1, "statName1")
	assert.Equal(t, []string{"quietSeason", "societyWhispers"}, cfg.Gossip.FallbackSignals)
}

func TestLoadConfigReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := []byte(`
server:
  address: ":9090"
gossip:
  retention:
    policy: replace
    maxItems: 12
  rules:
    betrayalMaxLoyalty: 20
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), yaml, 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("AUTH_JWTSECRET", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "replace", cfg.Gossip.Retention.Policy)
	assert.Equal(t, 12, cfg.Gossip.Retention.MaxItems)
	assert.Equal(t, 20.0, cfg.Gossip.Rules.BetrayalMaxLoyalty)
	assert.Equal(t, 25.0, cfg.Gossip.Rules.CompassionMaxLow)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Same(t, cfg, Cfg)
}
