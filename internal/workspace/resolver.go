// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Assessment record store: resolves an assessment to its workspace

package workspace

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Resolver maps an assessment ID to its workspace
type Resolver interface {
	Resolve(ctx context.Context, assessmentID string) (Ref, error)
}

// Static always resolves to the same workspace
type Static struct {
	Ref Ref
}

// Resolve implements Resolver
func (s Static) Resolve(ctx context.Context, assessmentID string) (Ref, error) {
	if s.Ref.Root == "" {
		return Ref{}, ErrNoWorkspace
	}
	ref := s.Ref
	if assessmentID != "" {
		ref.AssessmentID = assessmentID
	}
	return ref, nil
}

// Assessment is one record in the registry file
type Assessment struct {
	Container     string `yaml:"container,omitempty"`
	WorkspacePath string `yaml:"workspace_path,omitempty"`
}

// registryFile is the on-disk YAML layout
type registryFile struct {
	DefaultContainer string                 `yaml:"default_container,omitempty"`
	Assessments      map[string]*Assessment `yaml:"assessments"`
}

// FileStore is a YAML-backed record store
type FileStore struct {
	path             string
	defaultContainer string

	mu   sync.RWMutex
	data registryFile
}

// LoadFileStore reads the registry file. A missing file yields an empty store.
// defaultContainer is used for assessments (and files) that name none.
func LoadFileStore(file, defaultContainer string) (*FileStore, error) {
	s := &FileStore{path: file, defaultContainer: defaultContainer}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the registry file
func (s *FileStore) Reload() error {
	var data registryFile

	raw, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("failed to read registry %s: %w", s.path, err)
	default:
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("failed to parse registry %s: %w", s.path, err)
		}
	}
	if data.Assessments == nil {
		data.Assessments = make(map[string]*Assessment)
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Resolve implements Resolver
func (s *FileStore) Resolve(ctx context.Context, assessmentID string) (Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := strings.TrimSpace(assessmentID)
	a, ok := s.data.Assessments[id]
	if !ok || a == nil {
		return Ref{}, fmt.Errorf("%w: %s", ErrUnknownAssessment, id)
	}
	if a.WorkspacePath == "" {
		return Ref{}, fmt.Errorf("%w: %s", ErrNoWorkspace, id)
	}

	container := a.Container
	if container == "" {
		container = s.data.DefaultContainer
	}
	if container == "" {
		container = s.defaultContainer
	}
	if container == "" {
		return Ref{}, fmt.Errorf("assessment %s has no container and no default is configured", id)
	}

	return Ref{
		AssessmentID: id,
		Container:    container,
		Root:         path.Clean(a.WorkspacePath),
	}, nil
}

// Put adds or replaces an assessment and persists the file
func (s *FileStore) Put(assessmentID string, a Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Assessments[strings.TrimSpace(assessmentID)] = &a

	raw, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write registry %s: %w", s.path, err)
	}
	return nil
}

// IDs returns the known assessment IDs
func (s *FileStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data.Assessments))
	for id := range s.data.Assessments {
		ids = append(ids, id)
	}
	return ids
}
