package cmd

import (
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported test networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 12},
			{Title: "Display", Width: 18},
			{Title: "Chain ID", Width: 10, Right: true},
			{Title: "Currency", Width: 8},
			{Title: "Active", Width: 6},
		})
		for _, n := range reg.All() {
			active := ""
			if n.Name == runCfg.Network {
				active = ui.StyleSuccess.Render("✓")
			}
			t.AddRow(ui.Row{
				ui.ChainName(n.Name),
				n.DisplayName,
				strconv.FormatInt(n.ChainID, 10),
				n.NativeCurrency,
				active,
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d networks", len(reg.All()))))
		return nil
	},
}

var networkUseCmd = &cobra.Command{
	Use:   "use [network]",
	Short: "Set the default network",
	Long: `Set the default network and persist it to config.
Without an argument an interactive picker is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()

		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			items := make([]ui.PickerItem, 0, len(reg.All()))
			for _, n := range reg.All() {
				items = append(items, ui.PickerItem{
					Label:    n.Name,
					SubLabel: fmt.Sprintf("%s · chain %d", n.DisplayName, n.ChainID),
					Value:    n.Name,
					Current:  n.Name == cfg.Network,
				})
			}
			picked, err := ui.PickItem("Select network", items)
			if err != nil {
				return err
			}
			if picked == "" {
				fmt.Println(ui.Meta("Cancelled."))
				return nil
			}
			name = picked
		}

		if _, err := reg.GetByName(name); err != nil {
			return fmt.Errorf("unknown network %q, run `vaultctl network list` to see all networks", name)
		}
		cfg.Network = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default network set to %s", ui.ChainName(name))))
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkUseCmd)
}
