// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Cleanup functionality

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cleanup removes the stage directory. Safe to call more than once.
func (s *Stage) Cleanup() error {
	if !s.Exists() {
		return nil
	}

	if err := os.RemoveAll(s.Path); err != nil {
		return fmt.Errorf("failed to cleanup stage %s: %w", s.Path, err)
	}

	// parent may still hold concurrent stages
	_ = os.Remove(filepath.Join(s.BaseDir, StagingDirPrefix))

	return nil
}

// CleanupStale removes stages older than maxAge, left behind by a crashed process
func CleanupStale(baseDir string, maxAge time.Duration) (int, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	stagingDir := filepath.Join(baseDir, StagingDirPrefix)

	info, err := os.Stat(stagingDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat staging directory %s: %w", stagingDir, err)
	}
	if !info.IsDir() {
		return 0, nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read staging directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		entryInfo, err := entry.Info()
		if err != nil {
			continue
		}
		if entryInfo.ModTime().Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(stagingDir, entry.Name())); err == nil {
				cleaned++
			}
		}
	}

	_ = os.Remove(stagingDir)

	return cleaned, nil
}
