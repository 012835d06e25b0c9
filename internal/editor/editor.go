package editor

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/adrg/frontmatter"
)

// ResolveEditor determines which editor to use based on config, env vars, and fallback.
func ResolveEditor(configEditor string) string {
	if configEditor != "" {
		return configEditor
	}
	if ed := os.Getenv("EDITOR"); ed != "" {
		return ed
	}
	if ed := os.Getenv("VISUAL"); ed != "" {
		return ed
	}
	return "vi"
}

// run writes initial to a temp file, opens it in editorCmd and returns what
// was saved.
func run(editorCmd, initial string) (string, error) {
	parts := strings.Fields(editorCmd)
	if len(parts) == 0 {
		return "", fmt.Errorf("empty editor command")
	}

	tmp, err := os.CreateTemp("", "diaryweb-*.md")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.WriteString(initial); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}

	cmd := exec.Command(parts[0], append(parts[1:], name)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor exited with error: %w", err)
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading edited file: %w", err)
	}
	return string(data), nil
}

// Edit opens the given content in an editor and returns the edited content.
// If the user saves unchanged content or an empty file, it returns the original
// content and changed=false.
func Edit(editorCmd string, initialContent string) (content string, changed bool, err error) {
	result, err := run(editorCmd, initialContent)
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(result) == "" {
		return "", false, nil
	}
	if strings.TrimSpace(result) == strings.TrimSpace(initialContent) {
		return initialContent, false, nil
	}
	return result, true, nil
}

// Draft is the topic and content of an entry as edited in the editor.
type Draft struct {
	Topic   string
	Content string
}

type entryMatter struct {
	Topic string `yaml:"topic"`
}

// Render lays out topic and content the way EditEntry presents them: a YAML
// front-matter block holding the topic, then the content.
func Render(topic, content string) string {
	quoted, _ := json.Marshal(topic)
	return fmt.Sprintf("---\ntopic: %s\n---\n\n%s", quoted, content)
}

// Parse reads a document produced by Render. A document without front
// matter is all content. Blank lines around the content are dropped but
// indentation is kept.
func Parse(doc string) (Draft, error) {
	var fm entryMatter
	rest, err := frontmatter.Parse(strings.NewReader(doc), &fm)
	if err != nil {
		return Draft{}, fmt.Errorf("parsing front matter: %w", err)
	}
	return Draft{
		Topic:   strings.TrimSpace(fm.Topic),
		Content: strings.Trim(string(rest), "\n"),
	}, nil
}

// EditEntry opens topic and content together in the editor. changed is
// false when the result is identical to the input or has no content.
func EditEntry(editorCmd, topic, content string) (d Draft, changed bool, err error) {
	result, err := run(editorCmd, Render(topic, content))
	if err != nil {
		return Draft{}, false, err
	}
	d, err = Parse(result)
	if err != nil {
		return Draft{}, false, err
	}
	if strings.TrimSpace(d.Content) == "" {
		return Draft{}, false, nil
	}
	if d.Topic == strings.TrimSpace(topic) && d.Content == strings.Trim(content, "\n") {
		return d, false, nil
	}
	return d, true, nil
}
