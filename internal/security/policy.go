// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// URL validation and filesystem-safe name sanitization

package security

import (
	"path"
	"strings"
	"unicode"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Validator applies a PolicyConfig to untrusted input
type Validator struct {
	config *PolicyConfig
}

// NewValidator creates a new validator
func NewValidator(config *PolicyConfig) *Validator {
	if config == nil {
		config = DefaultPolicy()
	}
	if config.MaxNameLength <= 0 {
		config.MaxNameLength = DefaultMaxNameLength
	}
	if config.FallbackName == "" {
		config.FallbackName = DefaultFallbackName
	}
	return &Validator{config: config}
}

// ValidateRemoteURL trims the URL and rejects empty input, unsupported
// schemes, shell metacharacters and control characters.
//
// This is a secondary filter. Commands built from the URL are always passed
// as discrete argv tokens.
func (v *Validator) ValidateRemoteURL(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", reject("url", "", "git URL is required")
	}

	allowed := false
	for _, scheme := range v.config.AllowedSchemes {
		if strings.HasPrefix(url, scheme) {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", reject("url", url, "only "+strings.Join(v.config.AllowedSchemes, ", ")+" URLs are supported")
	}

	if strings.ContainsAny(url, v.config.ForbiddenChars) {
		return "", reject("url", url, "contains forbidden characters")
	}

	if strings.ContainsFunc(url, unicode.IsControl) {
		return "", reject("url", url, "contains control characters")
	}

	return url, nil
}

// ValidateBranch trims a requested branch name and checks it is a legal
// git branch. An empty branch is valid and means "remote default".
func (v *Validator) ValidateBranch(branch string) (string, error) {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return "", nil
	}

	if strings.HasPrefix(branch, "-") {
		return "", reject("branch", branch, "must not start with '-'")
	}

	if strings.ContainsAny(branch, v.config.ForbiddenChars) || strings.ContainsFunc(branch, unicode.IsSpace) {
		return "", reject("branch", branch, "contains forbidden characters")
	}

	if err := plumbing.NewBranchReferenceName(branch).Validate(); err != nil {
		return "", reject("branch", branch, "not a valid branch name")
	}

	return branch, nil
}

// SanitizeName keeps the final path segment, maps every character outside
// [A-Za-z0-9._-] to '_', strips leading dots and dashes and truncates.
// It never fails: adversarial input still yields a usable name.
func (v *Validator) SanitizeName(raw string) string {
	if i := strings.LastIndexAny(raw, `/\`); i >= 0 {
		raw = raw[i+1:]
	}

	var sb strings.Builder
	for _, r := range raw {
		if isNameRune(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}

	safe := strings.TrimLeft(sb.String(), ".-")
	if len(safe) > v.config.MaxNameLength {
		safe = safe[:v.config.MaxNameLength]
	}
	if safe == "" {
		return v.config.FallbackName
	}
	return safe
}

// ValidateEntryName rejects names that carry a path separator or a
// parent-directory token, or that would be altered by sanitizing.
func (v *Validator) ValidateEntryName(raw string) (string, error) {
	if raw == "" {
		return "", reject("name", "", "name is required")
	}
	if strings.ContainsAny(raw, `/\`) || strings.Contains(raw, "..") {
		return "", reject("name", raw, "invalid directory name")
	}

	safe := v.SanitizeName(raw)
	if safe != raw {
		return "", reject("name", raw, "invalid directory name")
	}

	// Re-check the sanitized form in case sanitizing ever changes shape
	if strings.ContainsAny(safe, `/\`) || strings.Contains(safe, "..") {
		return "", reject("name", raw, "invalid directory name")
	}

	return safe, nil
}

// RepoNameFromURL derives a candidate entry name from the final path
// segment of a repository URL, without a trailing ".git".
func (v *Validator) RepoNameFromURL(url string) string {
	p := url
	if ep, err := transport.NewEndpoint(url); err == nil && ep.Path != "" {
		p = ep.Path
	}

	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	p = strings.TrimSuffix(p, ".git")

	return v.SanitizeName(p)
}

// ArchiveBaseName returns the sanitized base name of an uploaded archive,
// without its extension.
func (v *Validator) ArchiveBaseName(filename string) string {
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = filename[i+1:]
	}
	filename = strings.TrimSuffix(filename, path.Ext(filename))
	return v.SanitizeName(filename)
}

// SanitizeFilename normalizes a context-upload filename. Unlike entry names,
// spaces are kept and a ".txt" extension is added when none is present.
func SanitizeFilename(raw string) string {
	if i := strings.LastIndexAny(raw, `/\`); i >= 0 {
		raw = raw[i+1:]
	}

	var sb strings.Builder
	for _, r := range raw {
		if isNameRune(r) || r == ' ' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}

	safe := strings.TrimLeft(strings.TrimSpace(sb.String()), ".-")
	if safe == "" {
		return DefaultFallbackFilename
	}
	if !strings.Contains(safe, ".") {
		safe += ".txt"
	}
	return safe
}

// isNameRune reports whether r is in [A-Za-z0-9._-]
func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
