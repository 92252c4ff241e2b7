package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/iconlens/internal/app"
	"github.com/zjrosen/iconlens/internal/render"
	"github.com/zjrosen/iconlens/internal/ui/styles"
)

var (
	renderSize int
	renderSVG  bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve KEY",
	Short: "Show the collection, name and size an icon reference resolves to",
	Long: `Resolve an icon key such as "mdi:home", "carbon-add" or a configured alias.

Examples:
  iconlens resolve mdi:home
  iconlens resolve mdi-light:bell`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var renderCmd = &cobra.Command{
	Use:   "render KEY",
	Short: "Print the SVG data URL of an icon",
	Long: `Render an icon key to a base64 SVG data URL, or to raw SVG with --svg.

Examples:
  iconlens render mdi:home
  iconlens render --size 64 --svg carbon:add > add.svg`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().IntVarP(&renderSize, "size", "s", 32, "rendered width and height in pixels")
	renderCmd.Flags().BoolVar(&renderSVG, "svg", false, "print the SVG markup instead of a data URL")
	rootCmd.AddCommand(resolveCmd, renderCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	key := args[0]
	icon, ok := svc.ResolveIcon(cmd.Context(), key)
	if !ok {
		return fmt.Errorf("icon %q not found", key)
	}

	row := func(label, value string) string {
		return styles.LabelStyle.Render(styles.PadRight(label, 12)) + value
	}
	lines := []string{
		row("collection", styles.KeyStyle.Render(icon.Collection)),
		row("name", icon.Name),
		row("size", fmt.Sprintf("%dx%d", icon.Width, icon.Height)),
		row("ratio", fmt.Sprintf("%.2f", icon.Ratio)),
		row("browse", app.BrowseURL(icon.Collection)),
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSection(lines, key, icon.Key(), 0))
	return err
}

func runRender(cmd *cobra.Command, args []string) error {
	if renderSize <= 0 {
		return fmt.Errorf("size must be positive, got %d", renderSize)
	}
	svc, cleanup, err := openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	key := args[0]
	if renderSVG {
		icon, ok := svc.ResolveIcon(cmd.Context(), key)
		if !ok {
			return fmt.Errorf("icon %q not found", key)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), render.ColoredSVG(icon, renderSize, svc.Color()))
		return err
	}

	url := svc.Render(cmd.Context(), render.KeySource{Key: key}, renderSize)
	if url == "" {
		return fmt.Errorf("icon %q not found", key)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
	return err
}
