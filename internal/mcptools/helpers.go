package mcptools

import (
	"time"

	"github.com/chris-regnier/diaryweb/internal/entry"
)

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.Local)
}

func toResults(entries []entry.Entry) []EntryResult {
	results := make([]EntryResult, 0, len(entries))
	for _, e := range entries {
		var kinds []string
		for _, k := range entry.MediaKinds {
			if e.MediaPath(k) != "" {
				kinds = append(kinds, string(k))
			}
		}
		results = append(results, EntryResult{
			ID:      e.ID,
			Heading: e.Heading(),
			Preview: e.Preview(100),
			Date:    e.CreatedAt.Local().Format(time.DateOnly),
			Media:   kinds,
		})
	}
	return results
}
