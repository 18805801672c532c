package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"document-search/internal/search"
)

var (
	searchTags  []string
	searchAny   bool
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Runs a semantic query against the indexed documents and prints the
matches ranked by relevance, with excerpts around the matching text.
Tags narrow the results; by default a document must carry all of them.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchTags, "tag", "t", nil, "only documents carrying this tag (repeatable)")
	searchCmd.Flags().BoolVar(&searchAny, "any-tag", false, "match any given tag instead of all")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	res, err := engine.Search(cmd.Context(), args[0], search.Options{
		Tags:     normalizeTagArgs(searchTags),
		MatchAny: searchAny,
		Limit:    searchLimit,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	if res.FilterBypassed {
		cmd.Println("No documents matched the tag filter; showing unfiltered results.")
		cmd.Println()
	}
	if len(res.Items) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, item := range res.Items {
		cmd.Printf("%d. %s (%s)\n", i+1, item.Filename, item.DocumentType)
		cmd.Printf("   %s\n", item.Path)
		cmd.Printf("   %s\n", relevance(item))
		if len(item.Tags) > 0 {
			cmd.Printf("   Tags: %s\n", strings.Join(item.Tags, ", "))
		}
		if item.Summary != "" {
			cmd.Printf("   %s\n", item.Summary)
		}
		for _, excerpt := range item.Excerpts {
			cmd.Printf("   > %s\n", excerpt)
		}
		cmd.Println()
	}
	return nil
}

// relevance renders the score as a percentage, with the section count when
// the match came from a chunked document.
func relevance(item search.Result) string {
	if item.ChunksFound > 1 {
		return fmt.Sprintf("Relevance: %.1f%% (%d matching sections)", item.Score*100, item.ChunksFound)
	}
	return fmt.Sprintf("Relevance: %.1f%%", item.Score*100)
}
