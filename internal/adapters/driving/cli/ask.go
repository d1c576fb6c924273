package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask <file.pdf> <question...>",
	Short: "Ask a single claims question about a policy",
	Long: `Retrieve the relevant passages and ask the language model for a verdict.

The verdict is one of Approved, Not Approved or Insufficient Information.
When information is missing the model's follow-up questions are listed;
use the chat command to answer them.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

// askOutput is the JSON form of an ask result.
type askOutput struct {
	Verdict  domain.Verdict         `json:"verdict"`
	Passages []domain.ScoredPassage `json:"passages"`
}

func init() {
	askCmd.Flags().Bool("json", false, "print the verdict and passages as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := need("answer", func(s *Services) bool {
		return s.Index != nil && s.Retrieval != nil && s.Answer != nil
	})
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("getting json flag: %w", err)
	}

	query := strings.Join(args[1:], " ")
	result, err := retrieve(cmd, svc, args[0], query, asJSON)
	if err != nil {
		return err
	}

	verdict := svc.Answer.Answer(cmd.Context(), query, result.PassageList())

	if asJSON {
		return printJSON(cmd, askOutput{Verdict: verdict, Passages: result.Passages})
	}
	printVerdict(cmd, verdict, result.Passages)
	return nil
}
