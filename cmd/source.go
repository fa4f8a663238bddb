/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/sony-level/wsimport/internal/api"
	"github.com/sony-level/wsimport/internal/importer"
	"github.com/sony-level/wsimport/internal/security"
)

var (
	cloneBranch string
	cloneFull   bool
	clonePick   bool
)

// branchesCmd lists remote branches without touching the workspace
var branchesCmd = &cobra.Command{
	Use:   "branches <url>",
	Short: "List the branches of a remote repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(rt *app) error {
			branches, err := rt.engine.DetectBranches(cmd.Context(), assessmentID, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]any{"branches": branches, "url": args[0]})
			}
			for _, b := range branches {
				fmt.Println(b)
			}
			return nil
		})
	},
}

// cloneCmd imports a remote repository into source/
var cloneCmd = &cobra.Command{
	Use:   "clone <url>",
	Short: "Clone a repository into the workspace (history is stripped)",
	Long: `Clone a git repository into <root>/source/<name> inside the sandbox
container. The .git directory is removed after cloning and a .source_meta
file records the URL and branch.

Examples:
  wsimport clone https://github.com/org/repo -a 42
  wsimport clone https://github.com/org/repo -a 42 --branch release/1.2
  wsimport clone https://github.com/org/repo -a 42 --pick-branch
  wsimport clone https://github.com/org/repo -a 42 --full`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(rt *app) error {
			branch := cloneBranch
			if clonePick && branch == "" {
				picked, err := pickBranch(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}
				branch = picked
			}

			if verbose {
				fmt.Printf("Cloning %s", args[0])
				if branch != "" {
					fmt.Printf(" (branch %s)", branch)
				}
				fmt.Println("...")
			}

			entry, err := rt.engine.Clone(cmd.Context(), assessmentID, importer.CloneRequest{
				URL:     args[0],
				Branch:  branch,
				Shallow: rt.cfg.Shallow && !cloneFull,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(api.NewEntryJSON(*entry))
			}
			fmt.Printf("%s %s (branch %s)\n", styleOK.Render("✓"), entry.Path, orDash(entry.Branch))
			return nil
		})
	},
}

// pickBranch prompts with the remote's branches
func pickBranch(ctx context.Context, rt *app, url string) (string, error) {
	branches, err := rt.engine.DetectBranches(ctx, assessmentID, url)
	if err != nil {
		return "", err
	}
	if len(branches) == 0 {
		return "", nil
	}
	// --yes accepts the remote default
	if yesFlag {
		return "", nil
	}

	choice := ""
	prompt := &survey.Select{Message: "Branch to clone:", Options: branches}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", fmt.Errorf("branch selection failed: %w", err)
	}
	return choice, nil
}

// uploadCmd extracts a local ZIP archive into source/
var uploadCmd = &cobra.Command{
	Use:   "upload <archive.zip>",
	Short: "Extract a ZIP archive into the workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readUpload(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(rt *app) error {
			res, err := rt.engine.UploadArchive(cmd.Context(), assessmentID, args[0], data)
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

// listCmd prints source entries with their provenance
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List source entries in the workspace",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(rt *app) error {
			entries, err := rt.engine.List(cmd.Context(), assessmentID)
			if err != nil {
				return err
			}
			if jsonOutput {
				out := make([]api.EntryJSON, 0, len(entries))
				for _, e := range entries {
					out = append(out, api.NewEntryJSON(e))
				}
				return printJSON(out)
			}
			printEntries(entries)
			return nil
		})
	},
}

// deleteCmd removes source entries after confirmation
var deleteCmd = &cobra.Command{
	Use:     "delete <name>...",
	Aliases: []string{"rm"},
	Short:   "Delete source entries from the workspace",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(rt *app) error {
			guard := security.NewGuard(yesFlag)
			return deleteEach(guard, "source", args, func(name string) error {
				return rt.engine.Delete(cmd.Context(), assessmentID, name)
			})
		})
	},
}

// deleteEach confirms then deletes each target, stopping at the first failure
func deleteEach(guard *security.Guard, subdir string, names []string, del func(string) error) error {
	for _, name := range names {
		target := subdir + "/" + name
		approved, abort, err := guard.Confirm(target)
		if err != nil {
			return err
		}
		if abort {
			fmt.Println(styleWarn.Render("Aborted."))
			return nil
		}
		if !approved {
			fmt.Printf("  → skipped %s\n", target)
			continue
		}
		if err := del(name); err != nil {
			return err
		}
		fmt.Printf("%s deleted %s\n", styleOK.Render("✓"), target)
	}
	return nil
}

// readUpload loads a local file for upload
func readUpload(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return data, nil
}

func init() {
	cloneCmd.Flags().StringVarP(&cloneBranch, "branch", "b", "", "Branch to clone (default: remote HEAD)")
	cloneCmd.Flags().BoolVar(&cloneFull, "full", false, "Fetch full history before stripping it (disables --depth 1)")
	cloneCmd.Flags().BoolVar(&clonePick, "pick-branch", false, "Choose the branch interactively from the remote's heads")

	for _, c := range []*cobra.Command{branchesCmd, cloneCmd, uploadCmd, listCmd, deleteCmd} {
		rootCmd.AddCommand(c)
	}
}
