/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sony-level/wsimport/internal/api"
	"github.com/sony-level/wsimport/internal/security"
)

// contextCmd groups context document commands
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage context documents (specs, diagrams, notes)",
	Long: `Context documents live in <root>/context inside the sandbox container.

A ZIP upload that contains a .git directory is treated as a repository
export and imported into source/ instead.`,
}

var contextUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a context document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readUpload(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(rt *app) error {
			res, err := rt.engine.UploadContext(cmd.Context(), assessmentID, args[0], data)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(api.NewUploadJSON(res))
			}
			printImport(res)
			return nil
		})
	},
}

var contextListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List context documents",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(rt *app) error {
			files, err := rt.engine.ListContext(cmd.Context(), assessmentID)
			if err != nil {
				return err
			}
			if jsonOutput {
				out := make([]api.ContextFileJSON, 0, len(files))
				for _, f := range files {
					out = append(out, api.NewContextFileJSON(f))
				}
				return printJSON(out)
			}
			printContextFiles(files)
			return nil
		})
	},
}

var contextDeleteCmd = &cobra.Command{
	Use:     "delete <filename>...",
	Aliases: []string{"rm"},
	Short:   "Delete context documents",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(rt *app) error {
			return deleteEach(security.NewGuard(yesFlag), "context", args, func(name string) error {
				return rt.engine.DeleteContext(cmd.Context(), assessmentID, name)
			})
		})
	},
}

func init() {
	contextCmd.AddCommand(contextUploadCmd, contextListCmd, contextDeleteCmd)
	rootCmd.AddCommand(contextCmd)
}
