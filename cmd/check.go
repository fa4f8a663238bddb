/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// checkCmd verifies the sandbox container can run imports
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the sandbox container is running and has the required tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(rt *app) error {
			summary, err := rt.engine.Check(cmd.Context(), assessmentID)
			if err != nil {
				return err
			}
			checker := rt.engine.Checker()
			missing := checker.MissingRequired(summary)

			if jsonOutput {
				return printJSON(map[string]any{
					"ready":   len(missing) == 0,
					"missing": summary.MissingTools,
				})
			}
			printCheck(checker, summary)
			if len(missing) > 0 {
				return fmt.Errorf("required tools missing: %s", strings.Join(missing, ", "))
			}
			fmt.Println(styleOK.Render("Container is ready."))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
