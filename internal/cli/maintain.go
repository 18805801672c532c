package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove [file...]",
	Short: "Remove documents from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		for _, arg := range args {
			path, err := filepath.Abs(arg)
			if err != nil {
				path = arg
			}
			removed := engine.Remove(ctx, path)
			if tags != nil {
				if err := tags.RemoveFile(ctx, path); err != nil {
					return fmt.Errorf("untrack %s: %w", path, err)
				}
			}
			if removed {
				cmd.Printf("Removed %s\n", path)
			} else {
				cmd.Printf("Not indexed: %s\n", path)
			}
		}
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the whole index from tracked files",
	Long: `Clears the embedding store and re-extracts and re-indexes every file
tracked in the tag database. Interrupting with Ctrl-C stops cleanly between
files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return engine.ReindexAll(cmd.Context(), func(msg string, pct int) {
			cmd.Printf("[%3d%%] %s\n", pct, msg)
		})
	},
}

var fixMetadataCmd = &cobra.Command{
	Use:   "fix-metadata",
	Short: "Refresh stored metadata from the tag database",
	Long: `Rewrites the tags and summaries stored on every indexed entry from the
current tag database, without re-embedding anything. Use after editing tags
in bulk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fixed, total, err := engine.FixAllMetadata(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Refreshed %d of %d tracked files\n", fixed, total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd, reindexCmd, fixMetadataCmd)
}
