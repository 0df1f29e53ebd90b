package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultNetwork        = "sepolia"
	defaultAlgorithm      = "fastest"
	defaultLogLevel       = "info"
	defaultConfirmTimeout = int(TxConfirmTimeout / time.Second)
	defaultPollInterval   = int(ReceiptPollDefault / time.Second)

	configFile  = "config.json"
	walletsFile = "wallets.json"
	logFile     = "vaultctl.log"
	envFile     = ".env"

	// DirEnv overrides the config directory.
	DirEnv = "VAULTCTL_CONFIG_DIR"
)

// Environment overrides applied by WithEnv.
const (
	EnvNetwork   = "VAULTCTL_NETWORK"
	EnvWallet    = "VAULTCTL_WALLET"
	EnvContract  = "VAULTCTL_CONTRACT"
	EnvRPCURL    = "VAULTCTL_RPC_URL"
	EnvRateLimit = "VAULTCTL_RPC_RATE_LIMIT"
	EnvLogLevel  = "VAULTCTL_LOG_LEVEL"
	EnvMetrics   = "VAULTCTL_METRICS_ADDR"
)

// ErrUnknownKey is returned by Set for keys that are not settable.
var ErrUnknownKey = errors.New("unknown config key")

// Load reads config from dir (or creates defaults). dir defaults to ~/.vaultctl.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".vaultctl")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}

	return cfg, nil
}

// LoadDotEnv loads .env from the working directory and then from dir.
// Variables already set in the environment win; missing files are ignored.
func LoadDotEnv(dir string) error {
	for _, p := range []string{envFile, filepath.Join(dir, envFile)} {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// WithEnv returns a copy of c with VAULTCTL_* overrides applied. The copy is
// for running commands; persist changes through the original.
func (c *Config) WithEnv(getenv func(string) string) (*Config, error) {
	out := *c
	out.CustomRPCs = make(map[string][]string, len(c.CustomRPCs))
	for k, v := range c.CustomRPCs {
		out.CustomRPCs[k] = slices.Clone(v)
	}

	if v := getenv(EnvNetwork); v != "" {
		out.Network = v
	}
	if v := getenv(EnvWallet); v != "" {
		out.DefaultWallet = v
	}
	if v := getenv(EnvContract); v != "" {
		out.Contract = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		out.LogLevel = v
	}
	if v := getenv(EnvMetrics); v != "" {
		out.MetricsAddr = v
	}
	if v := getenv(EnvRateLimit); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvRateLimit, err)
		}
		out.RPCRateLimit = rps
	}
	if v := getenv(EnvRPCURL); v != "" {
		out.CustomRPCs[out.Network] = append([]string{v}, out.CustomRPCs[out.Network]...)
	}
	return &out, nil
}

// Keys lists the settable config keys in display order.
func Keys() []string {
	return []string{
		"network", "default_wallet", "contract", "rpc_algorithm", "rpc_rate_limit",
		"confirm_timeout", "poll_interval", "log_level", "log_file", "metrics_addr",
	}
}

// Get returns a config value by key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "network":
		return c.Network, nil
	case "default_wallet":
		return c.DefaultWallet, nil
	case "contract":
		return c.Contract, nil
	case "rpc_algorithm":
		return c.RPCAlgorithm, nil
	case "rpc_rate_limit":
		return strconv.FormatFloat(c.RPCRateLimit, 'f', -1, 64), nil
	case "confirm_timeout":
		return strconv.Itoa(c.ConfirmTimeout), nil
	case "poll_interval":
		return strconv.Itoa(c.PollInterval), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_file":
		return c.LogFile, nil
	case "metrics_addr":
		return c.MetricsAddr, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Set updates a config value by key, validating its format.
func (c *Config) Set(key, value string) error {
	switch key {
	case "network":
		c.Network = value
	case "default_wallet":
		c.DefaultWallet = value
	case "contract":
		if !isHexAddress(value) {
			return fmt.Errorf("invalid contract address %q", value)
		}
		c.Contract = value
	case "rpc_algorithm":
		switch value {
		case "fastest", "round-robin", "failover":
			c.RPCAlgorithm = value
		default:
			return fmt.Errorf("invalid algorithm %q (fastest | round-robin | failover)", value)
		}
	case "rpc_rate_limit":
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil || rps < 0 {
			return fmt.Errorf("invalid rate limit %q", value)
		}
		c.RPCRateLimit = rps
	case "confirm_timeout", "poll_interval":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s %q: must be a positive number of seconds", key, value)
		}
		if key == "confirm_timeout" {
			c.ConfirmTimeout = n
		} else {
			c.PollInterval = n
		}
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(value)
		default:
			return fmt.Errorf("invalid log level %q", value)
		}
	case "log_file":
		c.LogFile = value
	case "metrics_addr":
		c.MetricsAddr = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network.
func (c *Config) RemoveRPC(network, url string) error {
	rpcs := c.CustomRPCs[network]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	c.CustomRPCs[network] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a network.
func (c *Config) GetRPCs(network string) []string {
	return c.CustomRPCs[network]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is the wallet store location.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// LogPath returns the console log file, defaulting to the config dir.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.configDir, logFile)
}

// ConfirmTimeoutDuration returns the receipt wait bound.
func (c *Config) ConfirmTimeoutDuration() time.Duration {
	if c.ConfirmTimeout <= 0 {
		return TxConfirmTimeout
	}
	return time.Duration(c.ConfirmTimeout) * time.Second
}

// PollIntervalDuration returns the receipt polling interval.
func (c *Config) PollIntervalDuration() time.Duration {
	if c.PollInterval <= 0 {
		return ReceiptPollDefault
	}
	return time.Duration(c.PollInterval) * time.Second
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		Network:        defaultNetwork,
		RPCAlgorithm:   defaultAlgorithm,
		ConfirmTimeout: defaultConfirmTimeout,
		PollInterval:   defaultPollInterval,
		LogLevel:       defaultLogLevel,
		CustomRPCs:     make(map[string][]string),
		configDir:      dir,
	}
}

func isHexAddress(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 40 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
