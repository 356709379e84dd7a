package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	searchLimit  int
	searchFormat string
	searchAuthor string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search archived articles",
	Long: `Search the indexed article archive.

Examples:
  # Basic search
  clipmd search "postgres partitioning"

  # Limit results
  clipmd search "rust" --limit 5

  # Only one author's articles, or all of them
  clipmd search "rust" --author alice
  clipmd search --author alice

  # JSON output for scripting
  clipmd search "llm" --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
	searchCmd.Flags().StringVar(&searchAuthor, "author", "", "Only show articles by this X handle")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var query string
	if len(args) > 0 {
		query = args[0]
	}
	if query == "" && searchAuthor == "" {
		return fmt.Errorf("a query or --author is required")
	}

	esClient, err := newSearchClient(GetConfig())
	if err != nil {
		return err
	}

	articles, err := esClient.SearchByAuthor(ctx, query, searchAuthor, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(articles) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(articles, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(articles))
	for i, a := range articles {
		fmt.Printf("─── Result %d ───\n", i+1)
		fmt.Printf("Title:   %s\n", a.Title)
		fmt.Printf("Author:  %s\n", a.Author)
		fmt.Printf("URL:     %s\n", a.URL)
		fmt.Printf("ID:      %s\n", a.ID)
		if a.Bundle != "" {
			fmt.Printf("Bundle:  %s\n", a.Bundle)
		}

		// Truncate content for display
		content := []rune(a.Content)
		if len(content) > 500 {
			content = append(content[:500], []rune("...")...)
		}
		fmt.Printf("Content:\n%s\n\n", string(content))
	}

	return nil
}
