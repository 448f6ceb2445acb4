package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zapsales/supervision-api/internal/domain/triage"
)

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show how many conversations sit in each supervision tab",
	RunE: func(cmd *cobra.Command, args []string) error {
		instance, _ := cmd.Flags().GetString("instance")
		output, _ := cmd.Flags().GetString("output")

		s, err := openSession(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer s.close()

		return runCounts(cmd.Context(), cmd.OutOrStdout(), s.client, instance, output)
	},
}

func init() {
	countsCmd.Flags().String("instance", "", "Only count conversations of this messaging instance")
	countsCmd.Flags().StringP("output", "o", "table", "Output format: table, json or yaml")
}

type countsReader interface {
	TabCounts(ctx context.Context, instanceID string) (*triage.TabCounts, error)
}

func runCounts(ctx context.Context, out io.Writer, client countsReader, instanceID, output string) error {
	switch output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	counts, err := client.TabCounts(ctx, instanceID)
	if err != nil {
		return err
	}

	switch output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(counts)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(map[triage.Queue]int{
			triage.QueueNeedsAttention:  counts.NeedsAttention,
			triage.QueueWaitingOnDoctor: counts.WaitingOnDoctor,
			triage.QueueAIActive:        counts.AIActive,
			triage.QueueClosed:          counts.Closed,
		}); err != nil {
			return err
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TAB\tCONVERSATIONS\n")
	fmt.Fprintf(w, "%s\t%d\n", triage.QueueNeedsAttention, counts.NeedsAttention)
	fmt.Fprintf(w, "%s\t%d\n", triage.QueueWaitingOnDoctor, counts.WaitingOnDoctor)
	fmt.Fprintf(w, "%s\t%d\n", triage.QueueAIActive, counts.AIActive)
	fmt.Fprintf(w, "%s\t%d\n", triage.QueueClosed, counts.Closed)
	return w.Flush()
}
