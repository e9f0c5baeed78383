package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	exposure "safetyband-cloud/internal/exposure/domain"
	"safetyband-cloud/internal/exposure/interfaces/report"
)

type processOptions struct {
	input    string
	report   string
	deviceID string
}

func newProcessCmd(root *rootOptions) *cobra.Command {
	opts := &processOptions{}
	c := &cobra.Command{
		Use:   "process",
		Short: "Run the HAV exposure processor over a JSON file of samples",
		Long: `Groups samples into clock-hour windows, aggregates them per severity and
reallocates cumulative durations into exclusive ones.

The input is a JSON array of samples:
  [{"severity": "high", "timestamp": "2024-06-10T09:20:00Z", "duration": 80}]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, root, opts)
		},
	}
	c.Flags().StringVarP(&opts.input, "input", "i", "", "samples JSON file")
	c.Flags().StringVar(&opts.report, "report", "", "write an exposure report (.xlsx or .pdf)")
	c.Flags().StringVar(&opts.deviceID, "device", "offline", "wearable display id shown in the report")
	_ = c.MarkFlagRequired("input")
	return c
}

func runProcess(cmd *cobra.Command, root *rootOptions, opts *processOptions) error {
	if err := root.validateOutput(); err != nil {
		return err
	}
	samples, err := readSamples(opts.input)
	if err != nil {
		return err
	}
	root.printVerbose(cmd, "read %d samples from %s", len(samples), opts.input)

	records := exposure.Process(samples)
	totals := exposure.TotalsBySeverity(records)

	switch root.output {
	case outputJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"records": records,
			"totals":  totalsByName(totals),
		}); err != nil {
			return err
		}
	default:
		printRecords(cmd, records, totals)
	}

	if opts.report != "" {
		if err := writeReport(opts.report, opts.deviceID, records); err != nil {
			return err
		}
		root.printVerbose(cmd, "wrote report %s", opts.report)
	}
	return nil
}

func readSamples(path string) ([]exposure.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var samples []exposure.Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	return samples, nil
}

func printRecords(cmd *cobra.Command, records []exposure.Record, totals [exposure.SeverityCount]int) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tSEVERITY\tDURATION\tSUBJECT")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", rec.Timestamp.UTC().Format(time.RFC3339), rec.Severity, rec.Duration, rec.SubjectID)
	}
	w.Flush()

	parts := make([]string, 0, exposure.SeverityCount)
	for _, severity := range exposure.Severities {
		parts = append(parts, fmt.Sprintf("%s=%d", severity, totals[severity]))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "totals: %s\n", strings.Join(parts, " "))
}

func totalsByName(totals [exposure.SeverityCount]int) map[string]int {
	out := make(map[string]int, exposure.SeverityCount)
	for _, severity := range exposure.Severities {
		out[severity.String()] = totals[severity]
	}
	return out
}

func writeReport(path, deviceID string, records []exposure.Record) error {
	rep := report.FromRecords(deviceID, records, time.Now())
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		data, err = report.BuildXLSX(rep)
	case ".pdf":
		data, err = report.BuildPDF(rep)
	default:
		return fmt.Errorf("report %s: extension must be .xlsx or .pdf", path)
	}
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
