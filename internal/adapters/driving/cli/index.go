package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <file.pdf>",
	Short: "Index a policy document",
	Long: `Extract, normalise, split and embed a policy PDF, then cache the result.

An existing cache is reused unless it is incomplete, unreadable or was built
with a different embedding model. Use --force to rebuild regardless.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolP("force", "f", false, "rebuild even when a usable cache exists")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	svc, err := need("index", func(s *Services) bool { return s.Index != nil })
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("getting force flag: %w", err)
	}

	path := args[0]
	build := svc.Index.Ensure
	if force {
		build = svc.Index.Build
	}

	summary, err := build(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	if summary == nil {
		cmd.Printf("%s is up to date\n", path)
		return nil
	}
	printSummary(cmd, summary)
	return nil
}
