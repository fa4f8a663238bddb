// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Import results and requests

package importer

import (
	"github.com/sony-level/wsimport/internal/provenance"
)

// Where an upload ended up
const (
	RoutedSource  = "source"
	RoutedContext = "context"
)

// SourceEntry describes one directory under <root>/source
type SourceEntry struct {
	Name       string
	Kind       string // git or zip
	URL        string // git entries with known provenance only
	Branch     string // empty when unknown
	SizeHuman  string
	Path       string // workspace-relative, source/<name>
	Provenance provenance.Provenance
}

// ImportResult is returned by uploads
type ImportResult struct {
	SourceEntry
	Size     int64
	RoutedTo string
	HadVCS   bool // archive carried a .git directory that was stripped
}

// ContextFile is one file under <root>/context
type ContextFile struct {
	Name      string
	Path      string // workspace-relative, context/<name>
	Size      int64
	SizeHuman string
}

// CloneRequest carries the caller-supplied clone options
type CloneRequest struct {
	URL     string
	Branch  string // empty means remote default
	Shallow bool
}
