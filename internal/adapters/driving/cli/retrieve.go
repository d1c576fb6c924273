package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <file.pdf> <query...>",
	Short: "Show the passages most relevant to a query",
	Long: `Run two-stage retrieval without asking the language model.

The document is indexed first when it has no usable cache. Passages are
listed by descending rerank score with their page and both stage scores.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	svc, err := need("retrieval", func(s *Services) bool {
		return s.Index != nil && s.Retrieval != nil
	})
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("getting json flag: %w", err)
	}

	result, err := retrieve(cmd, svc, args[0], strings.Join(args[1:], " "), asJSON)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(cmd, result)
	}
	if result.IsEmpty() {
		cmd.Println("No passages found.")
		return nil
	}
	cmd.Printf("%d candidates, top %d after reranking:\n\n", result.Candidates, len(result.Passages))
	printPassages(cmd, result.Passages)
	return nil
}

// retrieve indexes the file when needed and runs the query against it.
func retrieve(cmd *cobra.Command, svc *Services, path, query string, quiet bool) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}

	summary, err := svc.Index.Ensure(cmd.Context(), path)
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", path, err)
	}
	if summary != nil && !quiet {
		printSummary(cmd, summary)
		cmd.Println()
	}

	result, err := svc.Retrieval.Retrieve(cmd.Context(), path, query)
	if err != nil {
		return nil, fmt.Errorf("retrieving: %w", err)
	}
	return result, nil
}
