package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/aircheck-cli/internal/report"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show how each source was read: sub-tables used or skipped, rows dropped",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := loadCorpus(cmd.Context())
		if err != nil {
			return err
		}
		ds := c.Datasets()
		if handled, err := report.Structured(cmd.OutOrStdout(), f, ds); handled {
			return err
		}
		return report.Inspect(cmd.OutOrStdout(), ds)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
