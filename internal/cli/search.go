package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldnotes-ai/recall/internal/service"
)

var (
	searchLimit  int
	searchRerank bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed content without answer synthesis",
	Long: `Search the user's collection with hybrid keyword + vector
retrieval. Temporal phrases in the query ("last month", "Q1 2024")
become date filters automatically.

Returns ranked passages. Use 'ask' for a synthesized answer.

Examples:
  recall search "database migration"
  recall search "what did we decide about pricing last month"
  recall search "hiring plan" --rerank --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "max results (default from config)")
	searchCmd.Flags().BoolVarP(&searchRerank, "rerank", "r", false, "re-score results with pairwise LLM relevance")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := newQueryPipeline()
	if err != nil {
		return err
	}

	result, err := query.Query(context.Background(), service.QueryOptions{
		UserID: userID,
		Query:  args[0],
		TopK:   searchLimit,
		Rerank: searchRerank,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	printQueryHeader(result)
	if len(result.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(result.Results))
	for i, r := range result.Results {
		printResult(i+1, r)
	}
	printPipelineStats()
	return nil
}

func printQueryHeader(result *service.QueryResult) {
	if result.Temporal == nil {
		return
	}
	fmt.Printf("Time filter: %s", result.Temporal.RelativeText)
	if result.Temporal.Start != nil && result.Temporal.End != nil {
		fmt.Printf(" (%s to %s)",
			result.Temporal.Start.Format("2006-01-02"),
			result.Temporal.End.Format("2006-01-02"))
	}
	fmt.Println()
}
