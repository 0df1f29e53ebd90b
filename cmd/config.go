package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/vaultctl/internal/config"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current configuration",
	Long: `Show the persisted configuration. Values overridden by VAULTCTL_* variables
or flags for this run are marked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var pairs [][2]string
		for _, key := range config.Keys() {
			saved, _ := cfg.Get(key)
			effective, _ := runCfg.Get(key)
			val := ui.Val(saved)
			if saved == "" {
				val = ui.Meta("(unset)")
			}
			if effective != saved {
				val += ui.Meta(" → ") + ui.Val(effective) + ui.Meta(" (override)")
			}
			pairs = append(pairs, [2]string{key, val})
		}
		fmt.Println(ui.KeyValueBlock("Configuration", pairs))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := runCfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set and persist a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", key, value)))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd)
}
