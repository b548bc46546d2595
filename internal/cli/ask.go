package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldnotes-ai/recall/internal/models"
	"github.com/fieldnotes-ai/recall/internal/service"
)

var (
	askLimit    int
	askNoRerank bool
	askSources  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question and get a synthesized answer",
	Long: `Retrieve relevant passages and synthesize a prose answer from
them. Retrieval works like 'search' (hybrid, temporal-aware) with
reranking on by default.

Examples:
  recall ask "what did Alice say about the migration?"
  recall ask "what were the action items from last week" --sources`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", 0, "max passages to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askNoRerank, "no-rerank", false, "skip LLM reranking")
	askCmd.Flags().BoolVarP(&askSources, "sources", "s", false, "print the passages used for the answer")
}

func runAsk(cmd *cobra.Command, args []string) error {
	query, err := newQueryPipeline()
	if err != nil {
		return err
	}

	result, err := query.Query(context.Background(), service.QueryOptions{
		UserID: userID,
		Query:  args[0],
		TopK:   askLimit,
		Rerank: !askNoRerank,
		Answer: true,
	})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	printQueryHeader(result)

	if result.Answer == "" {
		if len(result.Results) == 0 {
			fmt.Println("No relevant content found.")
			return nil
		}
		fmt.Println("Could not synthesize an answer; closest passages:")
		fmt.Println()
		for i, r := range result.Results {
			printResult(i+1, r)
		}
		return nil
	}

	fmt.Println(result.Answer)

	if askSources && len(result.Results) > 0 {
		fmt.Printf("\nSources (%d):\n\n", len(result.Results))
		for i, r := range result.Results {
			printResult(i+1, r)
		}
	}
	printPipelineStats()
	return nil
}

// printResult renders one passage with its source line.
func printResult(n int, r models.SearchResult) {
	fmt.Printf("%d. [%.3f] %s", n, r.Score, r.Payload.SourceName)
	if r.Payload.Speaker != "" {
		fmt.Printf(" (%s)", r.Payload.Speaker)
	}
	if r.Payload.SourceDate != nil {
		fmt.Printf(" %s", r.Payload.SourceDate.Format("2006-01-02"))
	}
	fmt.Println()

	text := r.Payload.Text
	if !verbose && len(text) > 240 {
		text = text[:240] + "..."
	}
	fmt.Printf("   %s\n\n", text)
}
