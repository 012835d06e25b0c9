package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chris-regnier/diaryweb/internal/entry"
)

const timeLayout = "2006-01-02 15:04"

// MediaURLFunc turns a stored media name into a fetchable URL.
type MediaURLFunc func(path string) string

func FormatEntryCreated(w io.Writer, e entry.Entry) {
	fmt.Fprintf(w, "Created entry %s (%s)\n", e.ID, e.CreatedAt.Local().Format(timeLayout))
}

func FormatEntryUpdated(w io.Writer, e entry.Entry) {
	fmt.Fprintf(w, "Updated entry %s (%s)\n", e.ID, e.UpdatedAt.Local().Format(timeLayout))
}

func FormatEntryDeleted(w io.Writer, id string) {
	fmt.Fprintf(w, "Deleted entry %s.\n", id)
}

// MediaBadges returns a short marker per attached media kind, e.g. "[image][audio]".
func MediaBadges(e entry.Entry) string {
	var b strings.Builder
	for _, k := range entry.MediaKinds {
		if e.MediaPath(k) != "" {
			b.WriteString("[" + string(k) + "]")
		}
	}
	return b.String()
}

// FormatEntryList prints one line per entry: id, time, heading and badges.
func FormatEntryList(w io.Writer, entries []entry.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No diary entries found.")
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s  %s", e.ID, e.CreatedAt.Local().Format(timeLayout), truncate(e.Heading(), 60))
		if badges := MediaBadges(e); badges != "" {
			line += "  " + badges
		}
		fmt.Fprintln(w, line)
	}
}

// FormatEntryFull prints the metadata header, attachment URLs and the
// content rendered as markdown.
func FormatEntryFull(w io.Writer, e entry.Entry, mediaURL MediaURLFunc, markdownStyle string) {
	fmt.Fprintf(w, "%s\n", e.Heading())
	fmt.Fprintf(w, "Entry: %s\n", e.ID)
	fmt.Fprintf(w, "Created: %s\n", e.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "Modified: %s\n", e.UpdatedAt.Local().Format(timeLayout))
	for _, line := range mediaLines(e, mediaURL) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, RenderMarkdown(e.Content, defaultMarkdownWidth, markdownStyle))
}

func mediaLines(e entry.Entry, mediaURL MediaURLFunc) []string {
	var lines []string
	for _, k := range entry.MediaKinds {
		p := e.MediaPath(k)
		if p == "" {
			continue
		}
		loc := p
		if mediaURL != nil {
			loc = mediaURL(p)
		}
		lines = append(lines, fmt.Sprintf("%s%s: %s", strings.ToUpper(string(k[:1])), k[1:], loc))
	}
	return lines
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// FormatJSON writes any value as indented JSON.
func FormatJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// EntrySummary is the JSON form of a list row.
type EntrySummary struct {
	ID        string    `json:"id"`
	Heading   string    `json:"heading"`
	Preview   string    `json:"preview"`
	Media     []string  `json:"media,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ToSummaries(entries []entry.Entry) []EntrySummary {
	summaries := make([]EntrySummary, len(entries))
	for i, e := range entries {
		var media []string
		for _, k := range entry.MediaKinds {
			if e.MediaPath(k) != "" {
				media = append(media, string(k))
			}
		}
		summaries[i] = EntrySummary{
			ID:        e.ID,
			Heading:   e.Heading(),
			Preview:   e.Preview(60),
			Media:     media,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		}
	}
	return summaries
}

// DeleteResult is the JSON form of delete output.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
