// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Known vs inferred provenance

package provenance

// Provenance is either Known (read from .source_meta) or Inferred (guessed
// from the filesystem for entries created before provenance tracking).
type Provenance interface {
	Kind() string
	URL() string
	Branch() string
	Authoritative() bool
}

// Known wraps a record read from the entry's provenance file
type Known struct {
	Record Record
}

func (k Known) Kind() string        { return k.Record.Type }
func (k Known) URL() string         { return k.Record.URL }
func (k Known) Branch() string      { return k.Record.Branch }
func (k Known) Authoritative() bool { return true }

// Inferred is a best-effort guess. It never carries a URL.
type Inferred struct {
	Type       string
	HeadBranch string
}

func (i Inferred) Kind() string        { return i.Type }
func (i Inferred) URL() string         { return "" }
func (i Inferred) Branch() string      { return i.HeadBranch }
func (i Inferred) Authoritative() bool { return false }

// Source names the provenance variant for display and serialization
func Source(p Provenance) string {
	if p != nil && p.Authoritative() {
		return "metadata"
	}
	return "inferred"
}
