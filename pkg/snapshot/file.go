package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/mmap"

	"github.com/dd0wney/mspread/pkg/network"
)

// WriteFile writes s to path, snappy-framed when path ends in ".sz". The
// file is written to a temporary sibling and renamed into place.
func WriteFile(path string, s network.Snapshot) error {
	data, err := Marshal(s, strings.HasSuffix(path, CompressedSuffix))
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}

// ReadFile memory-maps path and decodes the snapshot in it. The format is
// detected from the content, not the name.
func ReadFile(path string) (network.Snapshot, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return network.Snapshot{}, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer reader.Close()

	data := make([]byte, reader.Len())
	if _, err := reader.ReadAt(data, 0); err != nil {
		return network.Snapshot{}, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return Unmarshal(data)
}
