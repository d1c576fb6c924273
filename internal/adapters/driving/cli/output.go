package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// previewLen is how many runes of a passage the retrieve command shows.
const previewLen = 240

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *domain.BuildSummary) {
	cmd.Printf("Indexed %s: %d pages, %d passages\n", s.FileName, s.Pages, s.Passages)
	if s.HasContext {
		cmd.Println("  Document header detected")
	}
	if s.SaveErr != nil {
		cmd.Printf("Warning: index not saved, it will be rebuilt next time: %v\n", s.SaveErr)
	}
}

func printPassages(cmd *cobra.Command, passages []domain.ScoredPassage) {
	for i := range passages {
		p := passages[i]
		label := p.Passage.Metadata.PageLabel()
		if !p.Passage.Metadata.IsHeader() {
			label = "page " + label
		}
		cmd.Printf("%d. [%s] rerank %.3f, vector %.3f\n", i+1, label, p.RerankScore, p.VectorScore)
		cmd.Printf("   %s\n", preview(p.Passage.Content, previewLen))
	}
}

func printVerdict(cmd *cobra.Command, v domain.Verdict, passages []domain.ScoredPassage) {
	switch v.Status {
	case domain.VerdictError:
		cmd.Printf("Error: %s\n", v.Answer)
		return
	default:
		cmd.Printf("Decision: %s\n", v.Decision)
	}
	if v.Answer != "" {
		cmd.Println(v.Answer)
	}
	if len(v.Questions) > 0 {
		cmd.Println()
		cmd.Println("More information needed:")
		for i, q := range v.Questions {
			cmd.Printf("  %d. %s\n", i+1, q)
		}
	}
	if pages := pageList(passages); pages != "" {
		cmd.Printf("Sources: %s\n", pages)
	}
}

// pageList names the distinct pages of the passages in rank order.
func pageList(passages []domain.ScoredPassage) string {
	seen := make(map[string]bool)
	var labels []string
	for i := range passages {
		meta := passages[i].Passage.Metadata
		label := meta.PageLabel()
		if seen[label] {
			continue
		}
		seen[label] = true
		if !meta.IsHeader() {
			label = "page " + label
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, ", ")
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
