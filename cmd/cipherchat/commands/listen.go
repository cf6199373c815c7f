package commands

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"cipherchat/internal/domain"
	"cipherchat/internal/protocol/channel"
)

// listen: stay online, print what arrives and acknowledge private messages.
func listenCmd() *cobra.Command {
	var global bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stay online and print incoming messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			info, err := login(cmd)
			if err != nil {
				return err
			}
			chat, err := wire.Connect(ctx)
			if err != nil {
				return err
			}
			defer chat.Close(ctx)

			out := &lockedWriter{w: cmd.OutOrStdout()}
			chat.Messages.FollowPresence(ctx)
			chat.Messages.OnPresence(func(p domain.Presence, online bool) {
				if p.PublicKeyHash == info.PublicKeyHash {
					return
				}
				state := "offline"
				if online {
					state = "online"
				}
				out.printf("* %s is %s\n", p.DisplayName, state)
			})
			chat.Messages.OnMessage(ctx, func(o domain.Opened) {
				m := o.Message
				switch {
				case o.DecryptionError:
					out.printf("[%s] <undecryptable from %s: %s>\n", short(m.Channel), m.SenderPublicKeyHash, o.Reason)
				case channel.IsGlobal(m.Channel):
					out.printf("[global] %s: %s\n", m.SenderName, m.Body)
				default:
					out.printf("[private] %s: %s\n", m.SenderName, m.Body)
					if m.SenderPublicKeyHash != info.PublicKeyHash {
						if err := chat.Messages.MarkRead(ctx, m); err != nil {
							wire.Log.Debug().Err(err).Msg("read receipt")
						}
					}
				}
			})
			chat.Messages.OnReadReceipt(func(r domain.ReadReceipt) {
				out.printf("* read: %s\n", r.MessageID)
			})

			if global {
				if err := chat.Messages.Join(ctx, channel.Global); err != nil {
					return err
				}
			}
			out.printf("listening as %s (Ctrl-C to quit)\n", info.Username)

			select {
			case <-ctx.Done():
				return nil
			case <-chat.Conn.Done():
				return chat.Conn.Err()
			}
		},
	}
	cmd.Flags().BoolVar(&global, "global", true, "join the global room")
	return cmd
}

func short(c domain.Channel) string {
	if s := c.String(); len(s) > 12 {
		return s[:12]
	}
	return c.String()
}

// lockedWriter serialises output from relay callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}
