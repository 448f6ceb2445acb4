package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
)

var publishCmd = &cobra.Command{
	Use:   "publish <conversation-id> <event-type> [json-data]",
	Short: "Publish a live event for a conversation",
	Long: `publish sends one event to every watcher of a conversation.
Event types: new_message, control_change, pause_change, channel_message.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventType, ok := liveupdate.ParseEventType(args[1])
		if !ok {
			return fmt.Errorf("unknown event type %q", args[1])
		}
		data := "{}"
		if len(args) == 3 {
			data = args[2]
		}
		event := liveupdate.Event{Type: eventType, Data: json.RawMessage(data)}
		if err := event.Validate(); err != nil {
			return err
		}

		s, err := openSession(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.client.PublishEvent(cmd.Context(), args[0], event); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %s to %s\n", eventType, args[0])
		return nil
	},
}
