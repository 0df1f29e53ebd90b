package config

// Config holds all vaultctl configuration.
type Config struct {
	Network        string              `json:"network"`
	DefaultWallet  string              `json:"default_wallet"`
	Contract       string              `json:"contract"`       // vault address
	RPCAlgorithm   string              `json:"rpc_algorithm"`  // "fastest" | "round-robin" | "failover"
	RPCRateLimit   float64             `json:"rpc_rate_limit"` // requests/second, 0 = unlimited
	ConfirmTimeout int                 `json:"confirm_timeout"` // seconds
	PollInterval   int                 `json:"poll_interval"`   // seconds
	LogLevel       string              `json:"log_level"`       // "debug" | "info" | "warn" | "error"
	LogFile        string              `json:"log_file,omitempty"`
	MetricsAddr    string              `json:"metrics_addr,omitempty"`
	CustomRPCs     map[string][]string `json:"custom_rpcs"`

	// internal: config dir path used for Save()
	configDir string
}
