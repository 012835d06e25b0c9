package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/ui"
	"github.com/spf13/cobra"
)

var showContentOnly bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a diary entry",
	Long:  "Display the full content, metadata and attachment URLs of a diary entry.",
	Example: `  diaryweb show a3kf9x2m
  diaryweb show a3kf9x2m --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		return showRun(cmd.Context(), cmd.OutOrStdout(), c, args[0], showContentOnly)
	},
}

func showRun(ctx context.Context, w io.Writer, c *client.Client, id string, contentOnly bool) error {
	e, err := c.Get(ctx, id)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return userErrorf("entry %s not found", id)
		}
		return err
	}

	if contentOnly {
		fmt.Fprintln(w, e.Content)
		return nil
	}
	if jsonOutput {
		return ui.FormatJSON(w, e)
	}

	theme := ui.ResolveTheme(appConfig.Theme)
	var buf bytes.Buffer
	ui.FormatEntryFull(&buf, e, c.MediaURL, theme.MarkdownStyle)
	return ui.Page(w, buf.String(), appConfig.MaxWidth, theme)
}

func init() {
	showCmd.Flags().BoolVar(&showContentOnly, "content-only", false, "print just the entry content")
	rootCmd.AddCommand(showCmd)
}
