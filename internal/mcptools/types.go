package mcptools

// ListInput is the input schema for the list_entries MCP tool.
type ListInput struct {
	StartDate string `json:"start_date,omitempty" jsonschema-description:"ISO date lower bound (inclusive)"`
	EndDate   string `json:"end_date,omitempty" jsonschema-description:"ISO date upper bound (inclusive)"`
	Limit     int    `json:"limit,omitempty" jsonschema-description:"Maximum number of results (default 20)"`
}

// SearchInput is the input schema for the search_entries MCP tool.
type SearchInput struct {
	Query string `json:"query" jsonschema-description:"Text to search for in entry topics and content"`
	Limit int    `json:"limit,omitempty" jsonschema-description:"Maximum number of results to return (default 10)"`
}

// EntriesOutput is the output schema of the listing tools.
type EntriesOutput struct {
	Entries []EntryResult `json:"entries"`
}

// EntryResult is the common output format for entry-related MCP tools.
type EntryResult struct {
	ID      string   `json:"id"`
	Heading string   `json:"heading"`
	Preview string   `json:"preview"`
	Date    string   `json:"date"`
	Media   []string `json:"media,omitempty"`
}

// GetEntryInput is the input schema for the get_entry MCP tool.
type GetEntryInput struct {
	ID string `json:"id" jsonschema-description:"Entry ID"`
}

// GetEntryOutput is the full entry returned by get_entry.
type GetEntryOutput struct {
	ID        string `json:"id"`
	Topic     string `json:"topic,omitempty"`
	Content   string `json:"content"`
	ImagePath string `json:"imagePath,omitempty"`
	VideoPath string `json:"videoPath,omitempty"`
	AudioPath string `json:"audioPath,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// CreateEntryInput is the input schema for the create_entry MCP tool.
type CreateEntryInput struct {
	Content string `json:"content" jsonschema-description:"Entry content (markdown)"`
	Topic   string `json:"topic,omitempty" jsonschema-description:"Optional topic"`
}

// CreateEntryOutput is the output schema for the create_entry MCP tool.
type CreateEntryOutput struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Heading string `json:"heading"`
}
