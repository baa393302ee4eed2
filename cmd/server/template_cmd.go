package main

import (
	"os"

	"github.com/rpattn/gradtrack/internal/importer"

	"github.com/spf13/cobra"
)

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <out.xlsx>",
		Short: "Write an empty import workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := importer.BuildTemplate()
			if err != nil {
				return err
			}
			return os.WriteFile(args[0], payload, 0o644)
		},
	}
}
