package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "supervise",
	Short: "Supervise patient conversations from the terminal",
	Long: `supervise reads the supervision API: the tab counts of the triage queues
and the live state of a single conversation.

Examples:
  supervise counts
  supervise counts --instance inst-1
  supervise watch 3f2a9c1e-conversation
  supervise publish 3f2a9c1e-conversation pause_change '{"is_paused":true}'`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(countsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(publishCmd)

	rootCmd.PersistentFlags().String("api-url", "", "Supervision API base URL (default $SUPERVISION_API_URL)")
	rootCmd.PersistentFlags().String("redis-url", "", "Share the read cache through Redis (default $REDIS_URL)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}
