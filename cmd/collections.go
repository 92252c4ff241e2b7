package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/iconlens/internal/app"
	"github.com/zjrosen/iconlens/internal/collections"
	"github.com/zjrosen/iconlens/internal/ui/markdown"
	"github.com/zjrosen/iconlens/internal/ui/styles"
)

const showSampleIcons = 24

var (
	collectionsJSON bool
	collectionsAll  bool
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Inspect the known icon collections",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enabled collections",
	Long: `List the enabled collections, bundled and custom.

Examples:
  iconlens collections list
  iconlens collections list --all
  iconlens collections list --json | jq '.[].id'`,
	Args: cobra.NoArgs,
	RunE: runCollectionsList,
}

var collectionsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Describe one collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsShow,
}

func init() {
	collectionsListCmd.Flags().BoolVar(&collectionsJSON, "json", false, "print collections as JSON")
	collectionsListCmd.Flags().BoolVar(&collectionsAll, "all", false, "include collections disabled by includes/excludes")
	collectionsCmd.AddCommand(collectionsListCmd, collectionsShowCmd)
	rootCmd.AddCommand(collectionsCmd)
}

type collectionRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Author  string `json:"author,omitempty"`
	License string `json:"license,omitempty"`
	Icons   int    `json:"icons"`
	Custom  bool   `json:"custom"`
	Enabled bool   `json:"enabled"`
}

func runCollectionsList(cmd *cobra.Command, _ []string) error {
	svc, cleanup, err := openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rows := collectionRows(svc, collectionsAll)
	if collectionsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	idWidth := 0
	for _, r := range rows {
		idWidth = max(idWidth, len(r.ID))
	}
	out := cmd.OutOrStdout()
	for _, r := range rows {
		id := styles.KeyStyle.Render(r.ID)
		if r.Custom {
			id = styles.CustomStyle.Render(r.ID)
		}
		line := styles.PadRight(id, idWidth+2) +
			styles.PadRight(styles.TruncateString(r.Name, 40), 42) +
			styles.MutedStyle.Render(fmt.Sprintf("%d icons", r.Icons))
		if !r.Enabled {
			line += " " + styles.WarningStyle.Render("(disabled)")
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func collectionRows(svc *app.Service, all bool) []collectionRow {
	enabled := svc.EnabledIDs()
	var rows []collectionRow
	for _, m := range svc.Collections() {
		on := slices.Contains(enabled, m.ID)
		if !on && !all {
			continue
		}
		rows = append(rows, collectionRow{
			ID:      m.ID,
			Name:    m.Name,
			Author:  m.Author,
			License: m.License,
			Icons:   m.Count(),
			Custom:  m.Custom,
			Enabled: on,
		})
	}
	slices.SortFunc(rows, func(a, b collectionRow) int { return strings.Compare(a.ID, b.ID) })
	return rows
}

func runCollectionsShow(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	meta, ok := svc.Collection(args[0])
	if !ok {
		return fmt.Errorf("unknown collection %q", args[0])
	}

	r, err := markdown.New(80, styles.GlamourStyle(styles.Dark(cfg.Theme)))
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(collectionDoc(meta, svc.Config().Delimiters))
	if err != nil {
		return fmt.Errorf("rendering collection: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

// collectionDoc describes meta as markdown: heading, attribution and a
// sample of icon keys.
func collectionDoc(meta collections.Meta, delimiters []string) string {
	delim := ":"
	if len(delimiters) > 0 {
		delim = delimiters[0]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Name)
	var attribution []string
	if meta.Author != "" {
		attribution = append(attribution, "by "+meta.Author)
	}
	if meta.License != "" {
		attribution = append(attribution, "license "+meta.License)
	}
	if meta.Custom {
		attribution = append(attribution, "custom collection")
	}
	if len(attribution) > 0 {
		fmt.Fprintf(&b, "%s\n\n", strings.Join(attribution, ", "))
	}
	fmt.Fprintf(&b, "**%d icons**, browse at %s\n\n", meta.Count(), app.BrowseURL(meta.ID))

	names := meta.Icons
	if len(names) > showSampleIcons {
		names = names[:showSampleIcons]
	}
	for _, name := range names {
		fmt.Fprintf(&b, "- `%s%s%s`\n", meta.ID, delim, name)
	}
	if rest := meta.Count() - len(names); rest > 0 {
		fmt.Fprintf(&b, "\n...and %d more\n", rest)
	}
	return b.String()
}
