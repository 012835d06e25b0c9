package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/ui"
	"github.com/spf13/cobra"
)

var forceDelete bool

// confirmFunc asks the user a yes/no question.
type confirmFunc func(prompt string) (bool, error)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a diary entry",
	Long:  "Permanently delete a diary entry and its attachments. Requires confirmation unless --force is used.",
	Example: `  diaryweb delete a3kf9x2m
  diaryweb delete a3kf9x2m --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		var ask confirmFunc
		if !forceDelete {
			theme := ui.ResolveTheme(appConfig.Theme)
			ask = func(prompt string) (bool, error) { return ui.Confirm(prompt, theme) }
		}
		return deleteRun(cmd.Context(), cmd.OutOrStdout(), c, args[0], ask)
	},
}

// deleteRun removes id, asking first when ask is non-nil.
func deleteRun(ctx context.Context, w io.Writer, c *client.Client, id string, ask confirmFunc) error {
	// Fetch entry to confirm it exists and show preview
	e, err := c.Get(ctx, id)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return userErrorf("entry %s not found", id)
		}
		return err
	}

	if ask != nil {
		fmt.Fprintf(w, "Entry: %s (%s)\n", e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "Heading: %s\n", e.Heading())
		if badges := ui.MediaBadges(e); badges != "" {
			fmt.Fprintf(w, "Attachments: %s\n", badges)
		}
		fmt.Fprintln(w)

		confirmed, err := ask("Delete this entry? This cannot be undone.")
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(w, "Cancelled.")
			return nil
		}
	}

	if err := c.Delete(ctx, id); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return userErrorf("entry %s not found", id)
		}
		return err
	}

	if jsonOutput {
		return ui.FormatJSON(w, ui.DeleteResult{ID: id, Deleted: true})
	}
	ui.FormatEntryDeleted(w, id)
	return nil
}

func init() {
	deleteCmd.Flags().BoolVar(&forceDelete, "force", false, "skip confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
