package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TokenFile stores the CLI's bearer token on disk. It satisfies the client's
// token provider interface.
type TokenFile struct {
	Path string
}

// Save writes token with owner-only permissions.
func (f TokenFile) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}

// Load returns the saved token, or "" when none is saved.
func (f TokenFile) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Clear removes the saved token. A missing file is not an error.
func (f TokenFile) Clear() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token: %w", err)
	}
	return nil
}

// Token implements client.AuthProvider.
func (f TokenFile) Token(context.Context) (string, error) {
	return f.Load()
}
