// Command gen regenerates the embedded collection catalog from the
// published icon sets or a local checkout of them.
//
//	go generate ./internal/collections
//	go run ./internal/collections/gen -s ~/src/icon-sets -o data/collections.json
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/zjrosen/iconlens/internal/collections"
	"github.com/zjrosen/iconlens/internal/fetch"
	"github.com/zjrosen/iconlens/internal/log"
)

// dirFetcher reads "URLs" that are plain file paths.
type dirFetcher struct{}

func (dirFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

func main() {
	var (
		out     = pflag.StringP("out", "o", "data/collections.json", "file to write")
		source  = pflag.StringP("source", "s", collections.DefaultSource, "base URL or directory of the icon sets")
		jobs    = pflag.IntP("jobs", "j", 8, "sets fetched concurrently")
		timeout = pflag.Duration("timeout", time.Minute, "timeout per request")
		verbose = pflag.BoolP("verbose", "v", false, "log every collection")
	)
	pflag.Parse()

	level := log.LevelInfo
	if *verbose {
		level = log.LevelDebug
	}
	log.InitWriter(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *source, *out, *jobs, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "gen:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, source, out string, jobs int, timeout time.Duration) error {
	var f fetch.Fetcher = dirFetcher{}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		f = fetch.NewHTTP(timeout)
	}
	metas, err := collections.Generate(ctx, f, source, jobs)
	if err != nil {
		return err
	}
	data, err := collections.EncodeCatalog(metas)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	log.Info(log.CatCatalog, "Wrote collection catalog", "path", out, "collections", len(metas))
	return nil
}
