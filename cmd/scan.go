package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjrosen/iconlens/internal/annotate"
	"github.com/zjrosen/iconlens/internal/app"
	"github.com/zjrosen/iconlens/internal/ui/styles"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan FILE...",
	Short: "Print the icon references found in files",
	Long: `Scan files for icon references and print every one that resolves.

Examples:
  iconlens scan src/App.vue
  iconlens scan --json src/*.tsx | jq '.[].decorations[].key'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print decorations as JSON")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	batches, err := scanFiles(cmd.Context(), svc, args)
	if err != nil {
		return err
	}
	if scanJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(batches)
	}
	for i, b := range batches {
		printBatch(cmd.OutOrStdout(), args[i], b)
	}
	return nil
}

func scanFiles(ctx context.Context, svc *app.Service, files []string) ([]annotate.Batch, error) {
	updater := annotate.NewUpdater(svc, 0, svc.Tracer())
	defer updater.Close()

	batches := make([]annotate.Batch, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(name) //nolint:gosec // G304: user-supplied file to scan
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		abs, err := filepath.Abs(name)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		batches = append(batches, updater.Scan(ctx, annotate.Document{
			URI:  "file://" + filepath.ToSlash(abs),
			Path: abs,
			Text: string(data),
		}))
	}
	return batches, nil
}

// printBatch writes one line per decoration in file:line:column form.
func printBatch(w io.Writer, name string, b annotate.Batch) {
	if len(b.Decorations) == 0 {
		_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(name+": no icons"))
		return
	}
	for _, d := range b.Decorations {
		_, _ = fmt.Fprintf(w, "%s %s\n",
			styles.MutedStyle.Render(fmt.Sprintf("%s:%d:%d", name, d.Range.Start.Line+1, d.Range.Start.Column+1)),
			styles.KeyStyle.Render(d.Key))
	}
}
