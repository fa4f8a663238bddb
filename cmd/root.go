/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sony-level/wsimport/internal/importer"
)

var (
	// Global flags
	cfgFile    string
	verbose    bool
	yesFlag    bool
	jsonOutput bool

	// Workspace selection
	assessmentID  string
	containerName string
	workspaceRoot string
	registryPath  string

	// Engine flags
	backendName string
	logFormat   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wsimport",
	Short: "Import source code into sandbox container workspaces",
	Long: `wsimport brings external source code into an assessment workspace that
lives inside a sandbox container. Every file operation runs inside the
container through argument-vector commands; the host never touches the
workspace directly.

Repositories are cloned with their history stripped, ZIP archives are
extracted, and each entry records where it came from.

Examples:
  wsimport branches https://github.com/org/repo --root /workspace/a1 --container sandbox
  wsimport clone https://github.com/org/repo -a 42 --branch develop
  wsimport upload ./export.zip -a 42
  wsimport context upload ./threat-model.pdf -a 42
  wsimport list -a 42
  wsimport delete repo -a 42 -y
  wsimport serve --config /etc/wsimport.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("Error:"), errorText(err))
		os.Exit(exitCode(err))
	}
}

// errorText prefers the engine's human-readable detail
func errorText(err error) string {
	var ie *importer.Error
	if errors.As(err, &ie) {
		return importer.Detail(err)
	}
	return err.Error()
}

// exitCode maps error kinds onto distinct process exit codes
func exitCode(err error) int {
	var ie *importer.Error
	if !errors.As(err, &ie) {
		return 1
	}
	switch ie.Kind {
	case importer.InvalidInput:
		return 2
	case importer.Conflict:
		return 3
	case importer.NotFound:
		return 4
	case importer.Timeout:
		return 5
	}
	return 1
}

func init() {
	// Persistent flags - available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./.wsimport.yaml, then ~/.config/wsimport/.wsimport.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "Auto-accept prompts")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	// Workspace selection flags
	rootCmd.PersistentFlags().StringVarP(&assessmentID, "assessment", "a", "", "Assessment ID to resolve through the registry")
	rootCmd.PersistentFlags().StringVar(&containerName, "container", "", "Sandbox container name (overrides default_container)")
	rootCmd.PersistentFlags().StringVar(&workspaceRoot, "root", "", "Workspace root inside the container; bypasses the registry")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "Assessment registry YAML file")

	// Engine flags
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Exec backend: docker (Engine API) or cli (docker binary)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
}
