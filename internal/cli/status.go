package cli

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if engine.Degraded() {
			cmd.Println("Vector store:  unavailable (indexing and search disabled)")
		} else {
			count, err := engine.EntryCount(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Vector store:  %d entries at %s\n", count, cfg.Vector.Path)
		}

		if tags == nil {
			cmd.Println("Tag database:  unavailable (tag features disabled)")
			return nil
		}
		paths, err := tags.Paths(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("Tag database:  %d tracked files\n", len(paths))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
