package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/passage-dev/passage/internal/core/domain"
)

var (
	searchTop  int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve ranked passages for a query",
	Long: `Expands the query, searches the vector store concurrently for each
variant, merges and deduplicates the hits, reranks them and prints the
top results.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTop, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	results, err := buildRetrieve().Retrieve(context.Background(), args[0], searchTop)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, results)
	}
	return outputTable(cmd, results)
}

func outputJSON(cmd *cobra.Command, results []domain.ScoredCandidate) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputTable(cmd *cobra.Command, results []domain.ScoredCandidate) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %.3f %s\n", i+1, r.Total, r.Link)
		cmd.Printf("      %s\n", snippet(r.Text, 160))
		cmd.Println()
	}
	return nil
}

// snippet cuts at a rune boundary and marks the cut.
func snippet(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
