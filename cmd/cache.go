package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/iconlens/internal/ui/styles"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the downloaded collection cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached collection",
	Long: `Delete every collection cached on disk. The next lookup downloads it again.
Custom collections are not affected.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, cleanup, err := openService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := svc.ClearCache(cmd.Context()); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), styles.SuccessStyle.Render("Cache cleared"))
		return err
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
