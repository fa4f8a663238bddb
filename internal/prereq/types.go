// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Container tool definitions

package prereq

import "time"

// DefaultProbeTimeout bounds a single `which` probe inside the container
const DefaultProbeTimeout = 10 * time.Second

// Tool represents a program the import workflows may run inside the container
type Tool struct {
	Name         string   // Tool name
	Command      string   // Command probed with which
	Alternatives []string // Alternative command names
	Required     bool     // Whether imports cannot work without it
	InstallGuide string   // Installation instructions for the sandbox image
}

// DefaultTools returns the tools the import workflows rely on
func DefaultTools() map[string]*Tool {
	return map[string]*Tool{
		"git": {
			Name:     "git",
			Command:  "git",
			Required: true,
			InstallGuide: `Install git in the sandbox image:
  Debian/Ubuntu: apt-get install -y git
  Alpine:        apk add git`,
		},
		"unzip": {
			Name:    "unzip",
			Command: "unzip",
			InstallGuide: `unzip is optional (python3 is used as a fallback):
  Debian/Ubuntu: apt-get install -y unzip
  Alpine:        apk add unzip`,
		},
		"python3": {
			Name:         "python3",
			Command:      "python3",
			Alternatives: []string{"python"},
			InstallGuide: `python3 is the extraction fallback when unzip is missing:
  Debian/Ubuntu: apt-get install -y python3
  Alpine:        apk add python3`,
		},
		"du": {
			Name:     "du",
			Command:  "du",
			Required: true,
			InstallGuide: `du ships with coreutils:
  Debian/Ubuntu: apt-get install -y coreutils`,
		},
		"find": {
			Name:     "find",
			Command:  "find",
			Required: true,
			InstallGuide: `find ships with findutils:
  Debian/Ubuntu: apt-get install -y findutils`,
		},
		"timeout": {
			Name:    "timeout",
			Command: "timeout",
			InstallGuide: `timeout ships with coreutils and is needed when kill_in_container is on:
  Debian/Ubuntu: apt-get install -y coreutils`,
		},
	}
}

// CheckResult contains the result of checking a tool
type CheckResult struct {
	Name  string // Tool name
	Found bool   // Whether tool was found
	Path  string // Path reported by which (if found)
	Error error  // Error during check (if any)
}

// CheckSummary contains results for all checks
type CheckSummary struct {
	Results      []CheckResult // Individual results
	AllFound     bool          // Whether all tools were found
	MissingTools []string      // List of missing tool names
}

// NewCheckSummary creates a new check summary
func NewCheckSummary() *CheckSummary {
	return &CheckSummary{
		Results:      []CheckResult{},
		AllFound:     true,
		MissingTools: []string{},
	}
}

// AddResult adds a check result to the summary
func (s *CheckSummary) AddResult(result CheckResult) {
	s.Results = append(s.Results, result)
	if !result.Found {
		s.AllFound = false
		s.MissingTools = append(s.MissingTools, result.Name)
	}
}
