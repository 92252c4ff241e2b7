package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/iconlens/internal/config"
	"github.com/zjrosen/iconlens/internal/ui/styles"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the configuration file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), configPath)
		return err
	},
}

var configToggleCmd = &cobra.Command{
	Use:       "toggle annotations|inplace",
	Short:     "Flip a boolean setting in the configuration file",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"annotations", "inplace"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var current bool
		switch args[0] {
		case "annotations":
			current = cfg.Annotations
		case "inplace":
			current = cfg.Inplace
		default:
			return fmt.Errorf("cannot toggle %q (supported: annotations, inplace)", args[0])
		}
		if configPath == "" {
			return fmt.Errorf("no configuration file in use")
		}

		next, err := config.Toggle(configPath, args[0], current)
		if err != nil {
			return fmt.Errorf("updating %s: %w", configPath, err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
			styles.LabelStyle.Render(args[0]+":"), styles.SuccessStyle.Render(fmt.Sprint(next)))
		return err
	},
}

func init() {
	configCmd.AddCommand(configPathCmd, configToggleCmd)
	rootCmd.AddCommand(configCmd)
}
