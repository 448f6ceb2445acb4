package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
	"github.com/zapsales/supervision-api/internal/domain/triage"
	"github.com/zapsales/supervision-api/internal/infrastructure/sse"
)

var watchCmd = &cobra.Command{
	Use:   "watch <conversation-id>",
	Short: "Follow one conversation live until interrupted",
	Long: `watch prints the conversation's queue, then every live event and
connection state change. The view is re-read whenever an event or the
polling fallback invalidates it. Ctrl+C stops watching.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer s.close()

		pollInterval := s.cfg.PollInterval
		if v, _ := cmd.Flags().GetDuration("poll-interval"); v > 0 {
			pollInterval = v
		}

		transport := sse.NewTransport(s.cfg.APIURL, s.log)
		return runWatch(cmd.Context(), cmd.OutOrStdout(), s.client, s.client.Cache(), transport, args[0], pollInterval, s.log)
	},
}

func init() {
	watchCmd.Flags().Duration("poll-interval", 0, "Refresh interval while the live stream is unavailable")
}

type detailReader interface {
	Detail(ctx context.Context, conversationID string) (*triage.Detail, error)
}

// invalidationNotifier signals changed whenever key is invalidated.
type invalidationNotifier struct {
	liveupdate.Invalidator
	key     string
	changed chan struct{}
}

func newInvalidationNotifier(inner liveupdate.Invalidator, key string) *invalidationNotifier {
	return &invalidationNotifier{
		Invalidator: inner,
		key:         key,
		changed:     make(chan struct{}, 1),
	}
}

func (n *invalidationNotifier) Invalidate(ctx context.Context, key string) error {
	err := n.Invalidator.Invalidate(ctx, key)
	if key == n.key {
		select {
		case n.changed <- struct{}{}:
		default:
		}
	}
	return err
}

func runWatch(
	ctx context.Context,
	out io.Writer,
	details detailReader,
	invalidator liveupdate.Invalidator,
	transport liveupdate.Transport,
	conversationID string,
	pollInterval time.Duration,
	log zerolog.Logger,
) error {
	notifier := newInvalidationNotifier(invalidator, liveupdate.DetailKey(conversationID))
	events := make(chan liveupdate.Event, 32)
	states := make(chan liveupdate.State, 16)

	channel := liveupdate.NewChannel(transport, notifier,
		liveupdate.WithObserver(func(e liveupdate.Event) {
			select {
			case events <- e:
			default:
			}
		}),
		liveupdate.WithStateObserver(func(s liveupdate.State) {
			select {
			case states <- s:
			default:
			}
		}),
		liveupdate.WithPollInterval(pollInterval),
		liveupdate.WithLogger(log),
	)
	defer channel.Close()

	if err := printDetail(ctx, out, details, conversationID); err != nil {
		return err
	}
	channel.Bind(conversationID)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "stopped watching")
			return nil
		case s := <-states:
			fmt.Fprintf(out, "%s  state   %s\n", stamp(), s)
		case e := <-events:
			fmt.Fprintf(out, "%s  event   %s %s\n", stamp(), e.Type, e.Data)
		case <-notifier.changed:
			if err := printDetail(ctx, out, details, conversationID); err != nil {
				log.Warn().Err(err).Msg("failed to refresh conversation")
			}
		}
	}
}

// printDetail fails only when the conversation does not exist.
func printDetail(ctx context.Context, out io.Writer, details detailReader, conversationID string) error {
	detail, err := details.Detail(ctx, conversationID)
	if errors.Is(err, conversation.ErrNotFound) {
		return fmt.Errorf("conversation %s not found", conversationID)
	}
	if err != nil {
		fmt.Fprintf(out, "%s  detail  unavailable: %v\n", stamp(), err)
		return nil
	}

	c := detail.Conversation
	if c == nil {
		fmt.Fprintf(out, "%s  detail  unavailable: empty response\n", stamp())
		return nil
	}
	fmt.Fprintf(out, "%s  detail  queue=%s status=%s controlled_by=%s paused=%t last=%s handoff=%t\n",
		stamp(), detail.Queue, c.Status, c.ControlledBy, c.IsPaused, directionLabel(detail.LastDirection), detail.HasPendingHandoff)
	return nil
}

func directionLabel(d conversation.Direction) string {
	if d == "" {
		return "none"
	}
	return string(d)
}

func stamp() string {
	return time.Now().Format(time.TimeOnly)
}
