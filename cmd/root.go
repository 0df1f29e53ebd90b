package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/logging"
	"github.com/Mohsinsiddi/vaultctl/internal/metrics"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/vaultctl/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir string
	// cfg is the persisted config; runCfg has env and flag overrides applied
	// and is never saved.
	cfg     *config.Config
	runCfg  *config.Config
	verbose bool
	yes     bool

	networkFlag  string
	walletFlag   string
	contractFlag string

	logger     *slog.Logger
	logLevel   slog.Level
	metricsSrv *metrics.Server
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "vaultctl",
	Short: "Terminal wallet console for a vault contract",
	Long: `vaultctl connects a local signing wallet to a vault contract on an EVM
test network. Check balances, deposit into the vault and withdraw from it,
either one command at a time or from the interactive console.

Configuration lives in ~/.vaultctl (override with --config or VAULTCTL_CONFIG_DIR).
VAULTCTL_* variables, also read from a .env file, override config values.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := config.LoadDotEnv(cfg.Dir()); err != nil {
			return err
		}
		runCfg, err = cfg.WithEnv(os.Getenv)
		if err != nil {
			return fmt.Errorf("applying environment: %w", err)
		}
		if networkFlag != "" {
			runCfg.Network = networkFlag
		}
		if walletFlag != "" {
			runCfg.DefaultWallet = walletFlag
		}
		if contractFlag != "" {
			runCfg.Contract = contractFlag
		}

		logLevel = logging.ParseLevel(runCfg.LogLevel)
		if verbose {
			logLevel = slog.LevelDebug
		}
		logger = logging.Setup(logLevel)

		if runCfg.MetricsAddr != "" {
			metricsSrv = metrics.NewServer(runCfg.MetricsAddr)
			go func() {
				if err := metricsSrv.Start(); err != nil {
					logger.Error("metrics server stopped", "addr", runCfg.MetricsAddr, "error", err)
				}
			}()
			logger.Debug("serving metrics", "addr", runCfg.MetricsAddr)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsSrv == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return metricsSrv.Stop(ctx)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

func init() {
	// VAULTCTL_CONFIG_DIR env var overrides --config flag.
	if envDir := os.Getenv(config.DirEnv); envDir != "" {
		cfgDir = envDir
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.vaultctl)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&yes, "yes", "y", false, "approve wallet requests without prompting")
	pf.StringVarP(&networkFlag, "network", "n", "", "network to use (overrides config)")
	pf.StringVarP(&walletFlag, "wallet", "w", "", "wallet to connect (overrides default)")
	pf.StringVar(&contractFlag, "contract", "", "vault contract address (overrides config)")

	rootCmd.AddCommand(
		consoleCmd,
		connectCmd,
		balanceCmd,
		contractBalanceCmd,
		ownerCmd,
		isOwnerCmd,
		sendCmd,
		withdrawCmd,
		walletCmd,
		networkCmd,
		rpcCmd,
		configCmd,
	)
}
