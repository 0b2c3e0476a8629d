// Package envfile renders per-service key=value configuration artifacts
// from resolved secrets and fixed settings.
//
// Rendering is fully deterministic: entries appear in declaration order and
// re-rendering with identical inputs overwrites with byte-identical content.
package envfile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Entry is a single key=value line in an artifact.
type Entry struct {
	// Key is the configuration key. Must be non-empty.
	Key string

	// Value is the configuration value.
	Value string

	// OmitIfEmpty drops the line entirely when Value is empty. Used for
	// sentinel-empty secrets the consuming service self-generates.
	OmitIfEmpty bool
}

// Artifact is one rendered configuration file.
type Artifact struct {
	// Path is the destination file path.
	Path string

	// Mode is the file mode. Credential-bearing artifacts use 0600.
	Mode fs.FileMode

	// Entries are the key=value lines in render order.
	Entries []Entry
}

// Render returns the artifact content.
func (a *Artifact) Render() string {
	var b strings.Builder
	for _, e := range a.Entries {
		if e.OmitIfEmpty && e.Value == "" {
			continue
		}
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(e.Value)
		b.WriteByte('\n')
	}
	return b.String()
}

// Validate checks that every entry that must carry a value does.
func (a *Artifact) Validate() error {
	for _, e := range a.Entries {
		if e.Key == "" {
			return fmt.Errorf("%s: entry with empty key", a.Path)
		}
		if e.Value == "" && !e.OmitIfEmpty {
			return fmt.Errorf("%s: required key %s has empty value", a.Path, e.Key)
		}
	}
	return nil
}

// Write validates and atomically writes the artifact: content lands in a
// temp file in the destination directory and is renamed into place with the
// artifact's mode, so consumers never observe a partial file.
func (a *Artifact) Write() error {
	if err := a.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(a.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(a.Path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(a.Render()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(a.Mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, a.Path); err != nil {
		return fmt.Errorf("failed to rename into %s: %w", a.Path, err)
	}
	return nil
}
