package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/ui"
	"github.com/spf13/cobra"
)

type listOptions struct {
	Date   string
	Query  string
	Limit  int
	Offset int
	IDOnly bool
}

var listOpts listOptions

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List diary entries",
	Long:  "List diary entries with their heading and attachments, newest first.",
	Example: `  diaryweb list
  diaryweb list --date 2026-01-31
  diaryweb list --query hiking --limit 5
  diaryweb list --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		return listRun(cmd.Context(), cmd.OutOrStdout(), c, listOpts)
	},
}

func listRun(ctx context.Context, w io.Writer, c *client.Client, opts listOptions) error {
	if opts.Date != "" {
		if _, err := time.ParseInLocation("2006-01-02", opts.Date, time.Local); err != nil {
			return userErrorf("invalid date format (use YYYY-MM-DD): %s", opts.Date)
		}
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return userErrorf("--limit and --offset must not be negative")
	}

	entries, err := c.List(ctx, client.ListQuery{
		Query:  opts.Query,
		Date:   opts.Date,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
	if err != nil {
		return err
	}

	if opts.IDOnly {
		for _, e := range entries {
			fmt.Fprintln(w, e.ID)
		}
		return nil
	}

	if jsonOutput {
		return ui.FormatJSON(w, ui.ToSummaries(entries))
	}
	var buf bytes.Buffer
	ui.FormatEntryList(&buf, entries)
	return ui.Page(w, buf.String(), appConfig.MaxWidth, ui.ResolveTheme(appConfig.Theme))
}

func init() {
	listCmd.Flags().StringVar(&listOpts.Date, "date", "", "filter by date (YYYY-MM-DD)")
	listCmd.Flags().StringVarP(&listOpts.Query, "query", "q", "", "only entries whose topic or content contains the text")
	listCmd.Flags().IntVar(&listOpts.Limit, "limit", 0, "maximum number of entries (0 = all)")
	listCmd.Flags().IntVar(&listOpts.Offset, "offset", 0, "skip this many entries")
	listCmd.Flags().BoolVar(&listOpts.IDOnly, "id-only", false, "print just entry IDs, one per line")
	rootCmd.AddCommand(listCmd)
}
