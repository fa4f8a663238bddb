/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sony-level/wsimport/internal/importer"
	"github.com/sony-level/wsimport/internal/prereq"
	"github.com/sony-level/wsimport/internal/provenance"
)

var (
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styleDim).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printEntries(entries []importer.SourceEntry) {
	if len(entries) == 0 {
		fmt.Println(styleDim.Render("No source entries."))
		return
	}
	t := newTable("NAME", "TYPE", "BRANCH", "URL", "SIZE", "PROVENANCE")
	for _, e := range entries {
		t.Row(e.Name, e.Kind, orDash(e.Branch), orDash(e.URL), e.SizeHuman, provenance.Source(e.Provenance))
	}
	fmt.Println(t)
}

func printContextFiles(files []importer.ContextFile) {
	if len(files) == 0 {
		fmt.Println(styleDim.Render("No context documents."))
		return
	}
	t := newTable("FILENAME", "SIZE", "PATH")
	for _, f := range files {
		t.Row(f.Name, f.SizeHuman, f.Path)
	}
	fmt.Println(t)
}

func printImport(res *importer.ImportResult) {
	fmt.Printf("%s %s (%s)\n", styleOK.Render("✓"), res.Path, res.SizeHuman)
	if res.RoutedTo == importer.RoutedSource && res.Kind != "" {
		fmt.Printf("  → imported as %s entry %q\n", res.Kind, res.Name)
	}
	if res.HadVCS {
		fmt.Printf("  → %s\n", styleWarn.Render("archive contained .git, history stripped"))
	}
}

func printCheck(checker *prereq.Checker, summary *prereq.CheckSummary) {
	t := newTable("TOOL", "STATUS", "PATH")
	for _, res := range summary.Results {
		status := styleOK.Render("found")
		switch {
		case res.Error != nil:
			status = styleError.Render("error: " + res.Error.Error())
		case !res.Found:
			if tool := checker.GetTool(res.Name); tool != nil && tool.Required {
				status = styleError.Render("missing (required)")
			} else {
				status = styleWarn.Render("missing")
			}
		}
		t.Row(res.Name, status, orDash(res.Path))
	}
	fmt.Println(t)

	if !summary.AllFound {
		fmt.Println()
		fmt.Print(checker.FormatMissing(summary))
	}
}
