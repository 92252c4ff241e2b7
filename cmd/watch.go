package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/iconlens/internal/app"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/ui/styles"
	"github.com/zjrosen/iconlens/internal/watcher"
)

var watchVerbose bool

var watchCmd = &cobra.Command{
	Use:   "watch FILE...",
	Short: "Scan files and rescan them whenever they or the icon sources change",
	Long: `Print the icon references of files, then keep running and print them again
whenever a file, a custom collection or an alias file changes.

Press Ctrl+C to stop.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "echo log lines to stderr")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchVerbose && !debugFlag {
		log.InitWriter(io.Discard, log.LevelInfo)
	}
	if watchVerbose {
		go echoLogs(ctx, cmd.ErrOrStderr())
	}

	svc, cleanup, err := openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	return watchFiles(ctx, svc, args, cmd.OutOrStdout())
}

func watchFiles(ctx context.Context, svc *app.Service, files []string, out io.Writer) error {
	abs := make(map[string]string, len(files))
	for _, f := range files {
		p, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", f, err)
		}
		abs[filepath.Clean(p)] = f
	}

	rescan := func(names []string) {
		batches, err := scanFiles(ctx, svc, names)
		if err != nil {
			_, _ = fmt.Fprintln(out, styles.ErrorStyle.Render(err.Error()))
			return
		}
		for i, b := range batches {
			printBatch(out, names[i], b)
		}
	}
	rescan(files)

	w, err := watcher.New(watcher.DefaultConfig(files))
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()
	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("watching files: %w", err)
	}

	go func() {
		if err := svc.Watch(ctx); err != nil {
			log.ErrorErr(log.CatWatcher, "Custom source watcher stopped", err)
		}
	}()
	events := svc.Subscribe(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-changes:
			if !ok {
				return nil
			}
			var names []string
			for _, c := range batch {
				name := abs[c.Path]
				if c.Removed {
					_, _ = fmt.Fprintln(out, styles.WarningStyle.Render(name+": removed"))
					continue
				}
				names = append(names, name)
			}
			if len(names) > 0 {
				rescan(names)
			}
		case _, ok := <-events:
			if !ok {
				return nil
			}
			rescan(files)
		}
	}
}

func echoLogs(ctx context.Context, w io.Writer) {
	for ev := range log.NewListener(ctx) {
		_, _ = fmt.Fprint(w, styles.MutedStyle.Render(ev.Payload))
	}
}
