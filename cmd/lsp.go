package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/iconlens/internal/config"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/lsp"
)

var (
	lspLogFile  string
	lspLogLevel string
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the language server on stdin/stdout",
	Long: `Run the iconlens language server. Editors start it as a child process and
talk JSON-RPC over stdin/stdout.

Besides hover and completion the server sends "iconlens/decorations"
notifications carrying the inline icons of each open document.

Logs never go to stdout; pass --log to write them to a file.`,
	Args: cobra.NoArgs,
	RunE: runLSP,
}

func init() {
	lspCmd.Flags().StringVar(&lspLogFile, "log", os.Getenv("ICONLENS_LOG"), "write logs to this file")
	lspCmd.Flags().StringVar(&lspLogLevel, "log-level", "info", "minimum level written to --log: debug, info, warn or error")
	rootCmd.AddCommand(lspCmd)
}

func runLSP(cmd *cobra.Command, _ []string) error {
	if lspLogFile != "" {
		closeLog, err := log.InitWithTeaLog(lspLogFile, "iconlens-lsp", log.ParseLevel(lspLogLevel))
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer closeLog()
	}

	// The editor's theme is unknown until initialize; dark unless
	// configured otherwise.
	dark := cfg.Theme != config.ThemeLight
	svc, cleanup, err := serviceFactory(cmd.Context(), cfg, dark)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Info(log.CatLSP, "Language server starting", "config", configPath)
	server := lsp.New(lsp.Options{
		In:         cmd.InOrStdin(),
		Out:        cmd.OutOrStdout(),
		Service:    svc,
		ConfigPath: configPath,
		Tracer:     svc.Tracer(),
	})
	return server.Run(cmd.Context())
}
