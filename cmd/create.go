package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/editor"
	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/ui"
	"github.com/spf13/cobra"
)

// mediaFlags holds the --image, --video and --audio paths of create and update.
type mediaFlags struct {
	Image string
	Video string
	Audio string
}

func (f *mediaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Image, "image", "", "attach an image file")
	cmd.Flags().StringVar(&f.Video, "video", "", "attach a video file")
	cmd.Flags().StringVar(&f.Audio, "audio", "", "attach an audio file")
}

// attachments checks that each named file exists and returns the uploads
// in image, video, audio order.
func (f mediaFlags) attachments() (image, video, audio *client.Attachment, err error) {
	pick := func(flag, path string) (*client.Attachment, error) {
		if path == "" {
			return nil, nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, userErrorf("--%s: %v", flag, err)
		}
		if info.IsDir() {
			return nil, userErrorf("--%s: %s is a directory", flag, path)
		}
		return client.FileAttachment(path), nil
	}
	if image, err = pick("image", f.Image); err != nil {
		return
	}
	if video, err = pick("video", f.Video); err != nil {
		return
	}
	audio, err = pick("audio", f.Audio)
	return
}

// inlineContent reads content from args: "-" means stdin, anything else is
// joined with spaces. ok is false when there are no args.
func inlineContent(in io.Reader, args []string) (content string, ok bool, err error) {
	switch {
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(in)
		if err != nil {
			return "", false, fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), true, nil
	case len(args) > 0:
		return strings.Join(args, " "), true, nil
	default:
		return "", false, nil
	}
}

var (
	createTopic string
	createMedia mediaFlags
)

var createCmd = &cobra.Command{
	Use:   "create [content...]",
	Short: "Create a new diary entry",
	Long: `Create a new diary entry.

If content is provided as arguments, it is used directly.
If "-" is provided, content is read from stdin.
If no content is provided, your editor is opened with a topic header.`,
	Example: `  diaryweb create "Today was great"
  diaryweb create --topic Hike --image summit.jpg Reached the top
  echo "piped content" | diaryweb create -
  diaryweb create`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}

		topic := createTopic
		content, ok, err := inlineContent(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		if !ok {
			d, changed, err := editor.EditEntry(editor.ResolveEditor(appConfig.Editor), topic, "")
			if err != nil {
				return fmt.Errorf("editor: %w", err)
			}
			if !changed {
				return userErrorf("empty content")
			}
			topic, content = d.Topic, d.Content
		}

		return createRun(cmd.Context(), cmd.OutOrStdout(), c, topic, content, createMedia)
	},
}

func createRun(ctx context.Context, w io.Writer, c *client.Client, topic, content string, media mediaFlags) error {
	if err := entry.ValidateContent(content); err != nil {
		return userError(err)
	}
	image, video, audio, err := media.attachments()
	if err != nil {
		return err
	}

	e, err := c.Create(ctx, client.Draft{
		Topic:   strings.TrimSpace(topic),
		Content: content,
		Image:   image,
		Video:   video,
		Audio:   audio,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return ui.FormatJSON(w, e)
	}
	ui.FormatEntryCreated(w, e)
	return nil
}

func init() {
	createCmd.Flags().StringVarP(&createTopic, "topic", "t", "", "entry topic")
	createMedia.register(createCmd)
	rootCmd.AddCommand(createCmd)
}
