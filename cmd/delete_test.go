package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/ui"
)

func answer(yes bool) confirmFunc {
	return func(string) (bool, error) { return yes, nil }
}

func TestDeleteConfirmed(t *testing.T) {
	c := setupTestEnv(t)
	e := seedEntry(t, c, client.Draft{Topic: "Old", Content: "delete me", Image: client.BytesAttachment("x.png", tinyPNG(t))})

	var buf bytes.Buffer
	if err := deleteRun(context.Background(), &buf, c, e.ID, answer(true)); err != nil {
		t.Fatalf("deleteRun: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Heading: Old", "Attachments: [image]", "Deleted entry " + e.ID} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if _, err := c.Get(context.Background(), e.ID); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteCancelled(t *testing.T) {
	c := setupTestEnv(t)
	e := seedEntry(t, c, client.Draft{Content: "keep me"})

	var buf bytes.Buffer
	if err := deleteRun(context.Background(), &buf, c, e.ID, answer(false)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Cancelled.") {
		t.Errorf("expected cancel message, got %q", buf.String())
	}
	if _, err := c.Get(context.Background(), e.ID); err != nil {
		t.Errorf("entry should survive, got %v", err)
	}
}

func TestDeleteForceJSON(t *testing.T) {
	c := setupTestEnv(t)
	e := seedEntry(t, c, client.Draft{Content: "gone"})
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })

	var buf bytes.Buffer
	if err := deleteRun(context.Background(), &buf, c, e.ID, nil); err != nil {
		t.Fatal(err)
	}
	var got ui.DeleteResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("JSON unmarshal: %v", err)
	}
	if !got.Deleted || got.ID != e.ID {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestDeleteNotFound(t *testing.T) {
	c := setupTestEnv(t)
	err := deleteRun(context.Background(), &bytes.Buffer{}, c, "zzzzzzzz", nil)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
	if code := ExitCode(err); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
