package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"document-search/internal/extract"
)

var indexTags []string

var indexCmd = &cobra.Command{
	Use:   "index [file...]",
	Short: "Index documents for searching",
	Long: `Extracts the text of each file and writes it into the embedding store.
Tags given with --tag are stored in the tag database and attached to the
indexed entries.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringSliceVarP(&indexTags, "tag", "t", nil, "tag to attach (repeatable)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	failed := 0
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			path = arg
		}

		if tags != nil {
			if err := tags.SetTags(ctx, path, normalizeTagArgs(indexTags)); err != nil {
				return fmt.Errorf("store tags for %s: %w", path, err)
			}
		}

		content, err := extract.Content(path)
		if err != nil {
			cmd.PrintErrf("Skipping %s: %v\n", path, err)
			failed++
			continue
		}
		if err := engine.Index(ctx, path, content, nil); err != nil {
			cmd.PrintErrf("Skipping %s: %v\n", path, err)
			failed++
			continue
		}
		cmd.Printf("Indexed %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func normalizeTagArgs(in []string) []string {
	var out []string
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
