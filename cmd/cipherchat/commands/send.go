package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cipherchat/internal/domain"
	"cipherchat/internal/services/message"
)

// send <username> <message...>: seal a message for a user who is listening.
func sendCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "send <username> <message...>",
		Short: "Seal and send a private message to a user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := login(cmd); err != nil {
				return err
			}
			chat, err := wire.Connect(ctx)
			if err != nil {
				return err
			}
			defer chat.Close(ctx)

			rec, err := chat.Messages.Lookup(ctx, domain.Username(args[0]))
			if err != nil {
				return err
			}
			if err := awaitPeer(ctx, chat.Messages, rec, wait); err != nil {
				return err
			}
			if _, err := chat.Messages.SendPrivate(ctx, rec.PublicKeyHash, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent to %s\n", rec.Username)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to wait for the peer to be listening")
	return cmd
}

// awaitPeer joins the pair channel and re-announces until the peer's
// listener answers on it. Messages are not stored, so sending to a peer who
// is not listening would lose them.
func awaitPeer(ctx context.Context, msgs *message.Service, rec domain.PublicKeyRecord, wait time.Duration) error {
	c, err := msgs.JoinPeer(ctx, rec.PublicKeyHash)
	if err != nil {
		return err
	}
	ready := make(chan struct{}, 1)
	stop := msgs.OnTyping(func(t domain.Typing, active bool) {
		if t.Channel != c {
			return
		}
		select {
		case ready <- struct{}{}:
		default:
		}
	})
	defer stop()

	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := msgs.Announce(ctx); err != nil {
			return err
		}
		select {
		case <-ready:
			return nil
		case <-tick.C:
		case <-deadline.C:
			return fmt.Errorf("%s is not listening", rec.Username)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
