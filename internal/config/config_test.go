package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystonelabs/chainkit/fixtures"
)

func writeConfig(t *testing.T, content []byte) string {
	t.Helper()
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), content, 0600))
	return home
}

func TestLoadConfigTemplate(t *testing.T) {
	home := writeConfig(t, fixtures.ConfigTemplate)

	cfg, err := LoadConfig(home)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Verbosity)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.Oracle.BaseURL)
	assert.Equal(t, "ethereum", cfg.Oracle.Tokens["ETH"])
	assert.Equal(t, 60*time.Second, cfg.Cache.PriceTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.GasTTL)
	assert.Equal(t, 9090, cfg.Daemon.ListenPort)
	assert.Equal(t, []uint64{1}, cfg.Daemon.GasSampleChains)
	assert.Empty(t, cfg.Chains, "template leaves the built-in registry active")
}

func TestLoadConfigDefaults(t *testing.T) {
	home := writeConfig(t, []byte("logger:\n  verbosity: debug\n"))

	cfg, err := LoadConfig(home)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Verbosity)
	assert.Equal(t, filepath.Join(home, "keyfile.json"), cfg.Keystore.Path)
	assert.Equal(t, 60*time.Second, cfg.Cache.PriceTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.GasTTL)
	assert.Equal(t, 9090, cfg.Daemon.ListenPort)
	assert.Equal(t, 30*time.Second, cfg.Daemon.GasSampleInterval)
}

func TestLoadConfigChains(t *testing.T) {
	home := writeConfig(t, []byte(`
chains:
  - chainId: 31337
    name: Local Anvil
    rpcUrl: http://localhost:8545
`))

	cfg, err := LoadConfig(home)
	require.NoError(t, err)

	require.Len(t, cfg.Chains, 1)
	assert.Equal(t, uint64(31337), cfg.Chains[0].ChainID)
	assert.Equal(t, "Local Anvil", cfg.Chains[0].Name)
	assert.Equal(t, "http://localhost:8545", cfg.Chains[0].RPCURL)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		home := writeConfig(t, []byte("logger: [unclosed"))
		_, err := LoadConfig(home)
		assert.Error(t, err)
	})
}
