// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Security types and input policy

package security

import "errors"

// ErrInvalidInput is wrapped by every validation failure in this package
var ErrInvalidInput = errors.New("invalid input")

const (
	// DefaultMaxNameLength bounds sanitized entry names
	DefaultMaxNameLength = 128
	// DefaultFallbackName is used when sanitizing leaves nothing behind
	DefaultFallbackName = "source"
	// DefaultFallbackFilename is used for context uploads with unusable names
	DefaultFallbackFilename = "upload.txt"
)

// PolicyConfig holds input validation settings
type PolicyConfig struct {
	AllowedSchemes []string // URL prefixes accepted for remote repositories
	ForbiddenChars string   // Characters rejected anywhere in a remote URL
	MaxNameLength  int      // Maximum length of a sanitized entry name
	FallbackName   string   // Name substituted when sanitizing yields nothing
}

// DefaultPolicy returns the default input policy
func DefaultPolicy() *PolicyConfig {
	return &PolicyConfig{
		AllowedSchemes: []string{"https://", "http://", "git://"},
		ForbiddenChars: ";&|`$<>()\\'\"{}",
		MaxNameLength:  DefaultMaxNameLength,
		FallbackName:   DefaultFallbackName,
	}
}

// ValidationError describes why an input was rejected
type ValidationError struct {
	Field  string // "url", "branch", "name", "filename"
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return e.Field + ": " + e.Reason
	}
	return e.Field + " " + quote(e.Value) + ": " + e.Reason
}

// Unwrap lets callers match ErrInvalidInput with errors.Is
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func reject(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// quote truncates long values so error messages stay readable
func quote(s string) string {
	const max = 80
	if len(s) > max {
		s = s[:max] + "..."
	}
	return "\"" + s + "\""
}
