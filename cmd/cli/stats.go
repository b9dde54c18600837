package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sevigo/build-warden/internal/index"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	dimColor   = color.New(color.FgHiBlack)
)

var (
	statsFormat string
	statsTop    int
)

// indexReport is what `index stats` prints.
type indexReport struct {
	Location      string            `json:"location" yaml:"location"`
	Version       uint16            `json:"version" yaml:"version"`
	Processed     uint64            `json:"processed" yaml:"processed"`
	DistinctLines int               `json:"distinct_lines" yaml:"distinct_lines"`
	Top           []index.LineCount `json:"top" yaml:"top"`
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the analyzer index",
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics about the analyzer index",
	Long: `Print how many logs the index has learned from, how many distinct
normalized lines it knows and which lines are the most common.

Examples:
  warden-cli index stats --index-file rust.idx
  warden-cli index stats --index-file rust.idx --format yaml --top 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, idx, cleanup, err := openIndex(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		stats := idx.Stats()
		report := indexReport{
			Location:      store.Location(),
			Version:       idx.Version,
			Processed:     stats.Processed,
			DistinctLines: stats.DistinctLines,
			Top:           idx.Top(statsTop),
		}
		return writeReport(cmd.OutOrStdout(), statsFormat, report)
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	statsCmd.Flags().StringVarP(&statsFormat, "format", "f", "table", "output format (table|json|yaml)")
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "number of most frequent lines to show")
	indexCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(indexCmd)
}

func writeReport(w io.Writer, format string, report indexReport) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(report); err != nil {
			return err
		}
		return encoder.Close()
	case "table":
		return writeTable(w, report)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeTable(w io.Writer, report indexReport) error {
	titleColor.Fprintf(w, "Index %s\n", report.Location)
	fmt.Fprintf(w, "  format version:  %d\n", report.Version)
	fmt.Fprintf(w, "  logs processed:  %d\n", report.Processed)
	fmt.Fprintf(w, "  distinct lines:  %d\n", report.DistinctLines)

	if len(report.Top) == 0 {
		dimColor.Fprintln(w, "  the index is empty")
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "LINE HASH\tSEEN IN LOGS")
	for _, line := range report.Top {
		fmt.Fprintf(tw, "%016x\t%d\n", line.Hash, line.Count)
	}
	return tw.Flush()
}
