package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/report"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the monitoring sites present in the data",
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
		sites := c.Sites()
		if handled, err := report.Structured(cmd.OutOrStdout(), f, map[string]any{"sites": sites}); handled {
			return err
		}
		if len(sites) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no sites)")
			return nil
		}
		for _, s := range sites {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", s)
		}
		return nil
	},
}

var pollutantsCmd = &cobra.Command{
	Use:   "pollutants",
	Short: "List pollutants and their safety thresholds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		type entry struct {
			Symbol    string  `json:"symbol" yaml:"symbol"`
			Threshold float64 `json:"threshold" yaml:"threshold"`
		}
		var out []entry
		for _, p := range air.Pollutants() {
			out = append(out, entry{Symbol: p.String(), Threshold: p.Threshold()})
		}
		if handled, err := report.Structured(cmd.OutOrStdout(), f, out); handled {
			return err
		}
		for _, e := range out {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s: %g %s\n", e.Symbol, e.Threshold, air.Unit)
		}
		return nil
	},
}

var yearsCmd = &cobra.Command{
	Use:   "years",
	Short: "List the years offered for queries and the years present in the data",
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
		doc := map[string][]int{"offered": cfg.Years, "available": c.Years()}
		if handled, err := report.Structured(cmd.OutOrStdout(), f, doc); handled {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "offered: %v\navailable: %v\n", cfg.Years, c.Years())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd, pollutantsCmd, yearsCmd)
}
