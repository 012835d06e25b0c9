package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/editor"
	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/ui"
	"github.com/spf13/cobra"
)

var (
	updateTopic string
	updateMedia mediaFlags
)

var updateCmd = &cobra.Command{
	Use:   "update <id> [content...]",
	Short: "Update a diary entry",
	Long: `Replace the content of an existing diary entry.

Content is taken from the arguments, from stdin with "-", or from your
editor when no content is given. The topic is kept unless --topic is set.
Attachments are replaced only for the --image, --video or --audio flags
that are given; the others stay as they are.`,
	Example: `  diaryweb update a3kf9x2m "Updated content here"
  echo "new content" | diaryweb update a3kf9x2m -
  diaryweb update a3kf9x2m --audio voice-note.m4a
  diaryweb update a3kf9x2m`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		id := args[0]

		current, err := c.Get(cmd.Context(), id)
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return userErrorf("entry %s not found", id)
			}
			return err
		}

		topic := current.Topic
		if cmd.Flags().Changed("topic") {
			topic = updateTopic
		}
		hasMedia := updateMedia != (mediaFlags{})

		content, ok, err := inlineContent(cmd.InOrStdin(), args[1:])
		if err != nil {
			return err
		}
		switch {
		case ok:
		case hasMedia || cmd.Flags().Changed("topic"):
			content = current.Content
		default:
			d, changed, err := editor.EditEntry(editor.ResolveEditor(appConfig.Editor), topic, current.Content)
			if err != nil {
				return fmt.Errorf("editor: %w", err)
			}
			if !changed {
				fmt.Fprintln(cmd.ErrOrStderr(), "No changes.")
				return nil
			}
			topic, content = d.Topic, d.Content
		}

		return updateRun(cmd.Context(), cmd.OutOrStdout(), c, id, topic, content, updateMedia)
	},
}

func updateRun(ctx context.Context, w io.Writer, c *client.Client, id, topic, content string, media mediaFlags) error {
	if err := entry.ValidateContent(content); err != nil {
		return userError(err)
	}
	image, video, audio, err := media.attachments()
	if err != nil {
		return err
	}

	updated, err := c.Update(ctx, id, client.EditDraft{
		Topic:   strings.TrimSpace(topic),
		Content: content,
		Image:   image,
		Video:   video,
		Audio:   audio,
	})
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return userErrorf("entry %s not found", id)
		}
		return err
	}

	if jsonOutput {
		return ui.FormatJSON(w, updated)
	}
	ui.FormatEntryUpdated(w, updated)
	return nil
}

func init() {
	updateCmd.Flags().StringVarP(&updateTopic, "topic", "t", "", "replace the entry topic")
	updateMedia.register(updateCmd)
	rootCmd.AddCommand(updateCmd)
}
