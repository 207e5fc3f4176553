package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-apps/harvester"
	"github.com/aluiziolira/go-scrape-apps/pipeline"
)

func newExportCmd(c *cli) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the checkpoint's deduplicated, rank-sorted games as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := c.checkpointStore()
			if err != nil {
				return fmt.Errorf("opening checkpoint: %w", err)
			}
			defer closeStore()

			writer, err := pipeline.NewCSVWriter(output)
			if err != nil {
				return fmt.Errorf("creating writer: %w", err)
			}
			n, err := harvester.Export(cmd.Context(), store, writer)
			if closeErr := writer.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			c.logger.Info("export complete", "games", n, "output", output)
			fmt.Fprintf(c.stdout, "Exported %d games to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "games.csv", "CSV file to write")
	return cmd
}
