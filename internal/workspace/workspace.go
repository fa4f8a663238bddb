// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Host staging directories for uploads on their way into a container

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Stage is a private host directory holding upload bytes until they are
// copied into the container. It never holds workspace content.
type Stage struct {
	ID      string
	Path    string
	BaseDir string
}

// GenerateStageID creates a unique stage ID with format: ws-YYYYMMDD-HHMM-<8 hex>
func GenerateStageID() string {
	timestamp := time.Now().Format("20060102-1504")
	return fmt.Sprintf("%s-%s-%s", StageIDPrefix, timestamp, uuid.NewString()[:8])
}

// NewStage creates a staging directory under baseDir.
// An empty baseDir means the OS temp directory.
func NewStage(baseDir string) (*Stage, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}

	id := GenerateStageID()
	stagePath := filepath.Join(baseDir, StagingDirPrefix, id)

	if err := os.MkdirAll(stagePath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory %s: %w", stagePath, err)
	}

	return &Stage{ID: id, Path: stagePath, BaseDir: baseDir}, nil
}

// WriteFile stores data under the stage and returns its host path.
// Only the base name of name is used.
func (s *Stage) WriteFile(name string, data []byte) (string, error) {
	p := filepath.Join(s.Path, filepath.Base(name))
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", name, err)
	}
	return p, nil
}

// Exists checks if the stage directory exists
func (s *Stage) Exists() bool {
	info, err := os.Stat(s.Path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// String returns a string representation of the stage
func (s *Stage) String() string {
	return fmt.Sprintf("Stage{ID: %s, Path: %s}", s.ID, s.Path)
}
