// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// workspace types/constants

package workspace

import (
	"errors"
	"path"
)

const (
	SourceSubdir     = "source"
	ContextSubdir    = "context"
	StagingDirPrefix = ".wsimport-staging"
	StageIDPrefix    = "ws"
)

var (
	// ErrUnknownAssessment is returned when the record store has no such assessment
	ErrUnknownAssessment = errors.New("assessment not found")
	// ErrNoWorkspace is returned when an assessment exists but has no workspace yet
	ErrNoWorkspace = errors.New("assessment has no workspace, create one first")
)

// Ref locates one assessment workspace inside its sandbox container.
// Paths are container paths and always use forward slashes.
type Ref struct {
	AssessmentID string
	Container    string
	Root         string
}

// SourceDir returns <root>/source
func (r Ref) SourceDir() string {
	return path.Join(r.Root, SourceSubdir)
}

// ContextDir returns <root>/context
func (r Ref) ContextDir() string {
	return path.Join(r.Root, ContextSubdir)
}

// EntryPath returns the container path of a source entry
func (r Ref) EntryPath(name string) string {
	return path.Join(r.SourceDir(), name)
}

// ContextPath returns the container path of a context file
func (r Ref) ContextPath(filename string) string {
	return path.Join(r.ContextDir(), filename)
}

// Key identifies the workspace for slot registries
func (r Ref) Key() string {
	return r.Container + ":" + r.Root
}
