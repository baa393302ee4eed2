package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rpattn/gradtrack/internal/importer"

	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import projects from a spreadsheet and print the summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			a, err := newApp(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			name := filepath.Base(args[0])
			if dryRun {
				result, err := a.service.Preview(cmd.Context(), importer.PreviewRequest{FileName: name, Data: file})
				if err != nil {
					return err
				}
				return enc.Encode(result)
			}

			summary, err := a.service.Import(cmd.Context(), importer.Request{FileName: name, Data: file})
			if err != nil {
				return err
			}
			if err := enc.Encode(summary); err != nil {
				return err
			}
			if outcome := summary.Outcome(); outcome != importer.OutcomeSuccess {
				return fmt.Errorf("import finished with outcome %s: %d of %d rows failed", outcome, summary.Failed, summary.TotalRows)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without writing anything")
	return cmd
}
