package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/iconlens/internal/app"
	"github.com/zjrosen/iconlens/internal/config"
	"github.com/zjrosen/iconlens/internal/fetch"
	"github.com/zjrosen/iconlens/internal/infrastructure/sqlite"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/lsp"
	"github.com/zjrosen/iconlens/internal/tracing"
	"github.com/zjrosen/iconlens/internal/ui/styles"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	themeFlag string

	cfg        config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "iconlens",
	Short: "Inline icon previews for icon references in source files",
	Long: `iconlens finds icon references such as "mdi:home" or "i-carbon-add" in
text, resolves them against Iconify collections and renders them as SVG data
URLs. It runs as a language server for editors or as a command line tool.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .iconlens/config.yaml, then ~/.config/iconlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"write debug logs to stderr")
	rootCmd.PersistentFlags().StringVar(&themeFlag, "theme", "",
		"color theme: auto, dark or light (overrides config)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if debugFlag || os.Getenv("ICONLENS_DEBUG") != "" {
		log.InitWriter(cmd.ErrOrStderr(), log.LevelDebug)
	}

	var err error
	cfg, configPath, err = config.Load(viper.New(), cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if themeFlag != "" {
		cfg.Theme = themeFlag
	}
	log.Debug(log.CatConfig, "Loaded config", "path", configPath)
	return nil
}

// serviceFactory builds the pipeline for a command. Tests replace it.
var serviceFactory = newService

// newService wires the durable sqlite store, the HTTP fetcher and tracing
// into an app.Service rooted at the working directory.
func newService(ctx context.Context, cfg config.Config, dark bool) (*app.Service, func(), error) {
	db, err := sqlite.NewDB(cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening cache database: %w", err)
	}
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("starting tracing: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("getting working directory: %w", err)
	}

	svc, err := app.New(app.Options{
		Config:  cfg,
		Store:   db.EntryStore(),
		Fetcher: fetch.NewHTTP(cfg.FetchTimeout),
		Folders: []string{wd},
		Tracer:  provider.Tracer(),
		Dark:    dark,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	svc.Reload(ctx)

	cleanup := func() {
		svc.Close()
		if err := provider.Shutdown(context.Background()); err != nil {
			log.ErrorErr(log.CatConfig, "Tracing shutdown failed", err)
		}
		if err := db.Close(); err != nil {
			log.ErrorErr(log.CatStore, "Closing cache database failed", err)
		}
	}
	return svc, cleanup, nil
}

// openService builds the service with the terminal's theme.
func openService(cmd *cobra.Command) (*app.Service, func(), error) {
	return serviceFactory(cmd.Context(), cfg, styles.Dark(cfg.Theme))
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.ExecuteContext(context.Background())
	var exit lsp.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
