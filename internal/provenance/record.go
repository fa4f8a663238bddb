// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Provenance record codec (.source_meta)

package provenance

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// FileName is the provenance file stored inside every entry directory
const FileName = ".source_meta"

// Entry kinds
const (
	KindGit = "git"
	KindZip = "zip"
)

// ErrInvalidRecord is returned for records that cannot be encoded or decoded
var ErrInvalidRecord = errors.New("invalid provenance record")

// Record is the on-disk description of where an entry came from
type Record struct {
	Type   string // git or zip
	URL    string // git only
	Branch string // git only, empty when unknown
}

// Encode serializes a record as key=value lines.
// Zip records never carry a URL or branch.
func Encode(r Record) ([]byte, error) {
	if r.Type != KindGit && r.Type != KindZip {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, r.Type)
	}
	for _, v := range []string{r.URL, r.Branch} {
		if strings.ContainsAny(v, "\r\n") {
			return nil, fmt.Errorf("%w: value contains a line break", ErrInvalidRecord)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("type=" + r.Type + "\n")
	if r.Type == KindGit {
		buf.WriteString("url=" + r.URL + "\n")
		buf.WriteString("branch=" + r.Branch + "\n")
	}
	return buf.Bytes(), nil
}

// Decode parses key=value lines. Unknown keys are ignored and a missing
// type defaults to zip. An empty payload is an error: callers treat it the
// same as an absent file.
func Decode(data []byte) (Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Record{}, fmt.Errorf("%w: empty", ErrInvalidRecord)
	}

	r := Record{Type: KindZip}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "type":
			if value != "" {
				r.Type = value
			}
		case "url":
			r.URL = value
		case "branch":
			r.Branch = value
		}
	}
	if err := sc.Err(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return r, nil
}

// ParseHeadRef extracts the branch from the contents of a .git/HEAD file.
// A detached HEAD (a bare object id) yields ok=false.
func ParseHeadRef(data []byte) (string, bool) {
	line := strings.TrimSpace(string(data))
	target, ok := strings.CutPrefix(line, "ref:")
	if !ok {
		return "", false
	}

	ref := plumbing.ReferenceName(strings.TrimSpace(target))
	if !ref.IsBranch() {
		return "", false
	}
	return ref.Short(), true
}

// ParseRemoteHeads extracts branch names from `git ls-remote --heads` output
func ParseRemoteHeads(output string) []string {
	branches := []string{}
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		_, refName, ok := strings.Cut(strings.TrimSpace(line), "\t")
		if !ok {
			continue
		}
		ref := plumbing.ReferenceName(strings.TrimSpace(refName))
		if ref.IsBranch() {
			branches = append(branches, ref.Short())
		}
	}
	return branches
}
