package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hazardwatch/internal/hazardlog"
	"hazardwatch/internal/orchestrator"
)

const displayTimeLayout = "2006-01-02 15:04:05"

func newLogCmd(opts *rootOptions) *cobra.Command {
	var (
		limit   int
		asJSON  bool
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show logged hazard detections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			s := opts.settings()
			ctx := cmd.Context()

			store, err := hazardlog.Open(ctx, s)
			if err != nil {
				return fmt.Errorf("open hazard log: %w", err)
			}
			defer store.Close()

			if summary {
				rows, err := hazardlog.Summarize(ctx, store, orchestrator.NewVocabulary(s.HazardLabels).Labels())
				if err != nil {
					return fmt.Errorf("summarize hazard log: %w", err)
				}
				if asJSON {
					return writeJSON(cmd, rows)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "HAZARD\tCOUNT")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%d\n", r.Label, r.Count)
				}
				return tw.Flush()
			}

			records, err := store.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("read hazard log: %w", err)
			}
			if asJSON {
				if records == nil {
					records = []orchestrator.LogRecord{}
				}
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no hazards logged")
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tHAZARD\tCONFIDENCE\tSOURCE")
			for _, r := range records {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\n", r.ID, r.Timestamp.Local().Format(displayTimeLayout), r.Label, r.Confidence, r.Source)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of most recent detections to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&summary, "summary", false, "print detection counts per hazard instead of records")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
