package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "sepolia", cfg.Network)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 180, cfg.ConfirmTimeout)
	assert.Equal(t, 2, cfg.PollInterval)
	assert.Empty(t, cfg.Contract)
	assert.Equal(t, filepath.Join(dir, "vaultctl.log"), cfg.LogPath())
	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.Network = "base-sepolia"
	cfg.DefaultWallet = "mywallet"
	cfg.RPCAlgorithm = "round-robin"
	cfg.Contract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "base-sepolia", reloaded.Network)
	assert.Equal(t, "mywallet", reloaded.DefaultWallet)
	assert.Equal(t, "round-robin", reloaded.RPCAlgorithm)
	assert.Equal(t, cfg.Contract, reloaded.Contract)
}

func TestLoadCorruptConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0o600))
	_, err := config.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestAddCustomRPC(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC("sepolia", "https://custom.sepolia.rpc"))
	assert.Contains(t, cfg.GetRPCs("sepolia"), "https://custom.sepolia.rpc")
}

func TestAddDuplicateRPCErrors(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	cfg.AddRPC("sepolia", "https://custom.sepolia.rpc") //nolint:errcheck
	assert.Error(t, cfg.AddRPC("sepolia", "https://custom.sepolia.rpc"))
}

func TestRemoveCustomRPC(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	cfg.AddRPC("sepolia", "https://rpc1") //nolint:errcheck
	cfg.AddRPC("sepolia", "https://rpc2") //nolint:errcheck

	require.NoError(t, cfg.RemoveRPC("sepolia", "https://rpc1"))
	rpcs := cfg.GetRPCs("sepolia")
	assert.NotContains(t, rpcs, "https://rpc1")
	assert.Contains(t, rpcs, "https://rpc2")

	assert.Error(t, cfg.RemoveRPC("sepolia", "https://nonexistent.rpc"))
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err, "config.json should be created on save")
}

func TestLoadFromNonExistentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "subdir")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
	assert.DirExists(t, dir)
}

func TestSetAndGet(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	tests := []struct {
		key, value string
	}{
		{"network", "holesky"},
		{"default_wallet", "alice"},
		{"contract", "0x5FbDB2315678afecb367f032d93F642f64180aa3"},
		{"rpc_algorithm", "failover"},
		{"rpc_rate_limit", "2.5"},
		{"confirm_timeout", "60"},
		{"poll_interval", "1"},
		{"log_level", "debug"},
		{"log_file", "/tmp/v.log"},
		{"metrics_addr", ":9464"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			require.NoError(t, cfg.Set(tt.key, tt.value))
			got, err := cfg.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
	assert.Len(t, config.Keys(), len(tests))
	assert.Equal(t, time.Minute, cfg.ConfirmTimeoutDuration())
	assert.Equal(t, time.Second, cfg.PollIntervalDuration())
}

func TestSetRejectsBadValues(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	for key, value := range map[string]string{
		"contract":        "0x1234",
		"rpc_algorithm":   "random",
		"rpc_rate_limit":  "-1",
		"confirm_timeout": "0",
		"poll_interval":   "soon",
		"log_level":       "loud",
	} {
		assert.Error(t, cfg.Set(key, value), key)
	}
	assert.ErrorIs(t, cfg.Set("nope", "x"), config.ErrUnknownKey)
	_, err := cfg.Get("nope")
	assert.ErrorIs(t, err, config.ErrUnknownKey)
}

func TestWithEnvOverrides(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())
	cfg.AddRPC("holesky", "https://saved.rpc") //nolint:errcheck

	env := map[string]string{
		config.EnvNetwork:   "holesky",
		config.EnvWallet:    "ci",
		config.EnvContract:  "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		config.EnvRPCURL:    "http://127.0.0.1:8545",
		config.EnvRateLimit: "4",
		config.EnvLogLevel:  "debug",
	}
	eff, err := cfg.WithEnv(func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, "holesky", eff.Network)
	assert.Equal(t, "ci", eff.DefaultWallet)
	assert.Equal(t, "debug", eff.LogLevel)
	assert.Equal(t, 4.0, eff.RPCRateLimit)
	assert.Equal(t, []string{"http://127.0.0.1:8545", "https://saved.rpc"}, eff.GetRPCs("holesky"))

	assert.Equal(t, "sepolia", cfg.Network, "original untouched")
	assert.Equal(t, []string{"https://saved.rpc"}, cfg.GetRPCs("holesky"))
}

func TestWithEnvBadRateLimit(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())
	_, err := cfg.WithEnv(func(k string) string {
		if k == config.EnvRateLimit {
			return "fast"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VAULTCTL_TEST_DOTENV=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("VAULTCTL_TEST_DOTENV") })

	require.NoError(t, config.LoadDotEnv(dir))
	assert.Equal(t, "from-file", os.Getenv("VAULTCTL_TEST_DOTENV"))
}

func TestLoadDotEnvMissingIsFine(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(t.TempDir()))
}
