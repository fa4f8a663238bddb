// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Prerequisite checker for tools inside the sandbox container

package prereq

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sony-level/wsimport/internal/exec"
)

// Checker probes tool availability inside containers.
// Definite answers are cached per container; probe errors are not.
type Checker struct {
	bridge  exec.Bridge
	tools   map[string]*Tool
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]map[string]CheckResult
}

// NewChecker creates a new prerequisite checker
func NewChecker(bridge exec.Bridge, timeout time.Duration) *Checker {
	return NewCheckerWithTools(bridge, DefaultTools(), timeout)
}

// NewCheckerWithTools creates a checker with custom tools
func NewCheckerWithTools(bridge exec.Bridge, tools map[string]*Tool, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Checker{
		bridge:  bridge,
		tools:   tools,
		timeout: timeout,
		cache:   make(map[string]map[string]CheckResult),
	}
}

// CheckTool checks if a specific tool exists in the container
func (c *Checker) CheckTool(ctx context.Context, container, name string) CheckResult {
	name = strings.ToLower(name)

	c.mu.Lock()
	if cached, ok := c.cache[container][name]; ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	result := c.probe(ctx, container, name)
	if result.Error == nil {
		c.mu.Lock()
		if c.cache[container] == nil {
			c.cache[container] = make(map[string]CheckResult)
		}
		c.cache[container][name] = result
		c.mu.Unlock()
	}
	return result
}

// Has reports whether a tool is available. A failed probe counts as missing.
func (c *Checker) Has(ctx context.Context, container, name string) bool {
	return c.CheckTool(ctx, container, name).Found
}

func (c *Checker) probe(ctx context.Context, container, name string) CheckResult {
	result := CheckResult{Name: name}

	commands := []string{name}
	if tool, ok := c.tools[name]; ok {
		commands = append([]string{tool.Command}, tool.Alternatives...)
	}

	for _, cmd := range commands {
		res, err := c.bridge.Exec(ctx, container, []string{"which", cmd}, c.timeout)
		if err != nil {
			result.Error = err
			return result
		}
		if res.Success() {
			result.Found = true
			result.Path = strings.TrimSpace(res.Stdout)
			return result
		}
	}
	return result
}

// Invalidate drops cached answers for a container (e.g. after an image rebuild)
func (c *Checker) Invalidate(container string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, container)
}

// GetTool returns a tool definition by name
func (c *Checker) GetTool(name string) *Tool {
	return c.tools[strings.ToLower(name)]
}

// GetInstallGuide returns installation instructions for a tool
func (c *Checker) GetInstallGuide(name string) string {
	tool := c.GetTool(name)
	if tool == nil {
		return "No installation guide available for " + name
	}
	return tool.InstallGuide
}

// ToolNames returns all known tool names, sorted
func (c *Checker) ToolNames() []string {
	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckMultiple checks multiple tools and returns a summary
func (c *Checker) CheckMultiple(ctx context.Context, container string, names []string) *CheckSummary {
	summary := NewCheckSummary()

	for _, name := range names {
		summary.AddResult(c.CheckTool(ctx, container, name))
	}

	return summary
}

// MissingRequired lists required tools absent from a summary
func (c *Checker) MissingRequired(summary *CheckSummary) []string {
	var missing []string
	for _, name := range summary.MissingTools {
		if tool := c.GetTool(name); tool != nil && tool.Required {
			missing = append(missing, name)
		}
	}
	return missing
}

// FormatMissing returns a formatted string of missing tools with install guides
func (c *Checker) FormatMissing(summary *CheckSummary) string {
	if summary.AllFound {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Missing container tools:\n\n")

	for _, name := range summary.MissingTools {
		sb.WriteString("─────────────────────────────────\n")
		sb.WriteString(name + "\n")
		sb.WriteString("─────────────────────────────────\n")
		sb.WriteString(c.GetInstallGuide(name))
		sb.WriteString("\n\n")
	}

	return sb.String()
}
