package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func sayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say <message...>",
		Short: "Post a plaintext message to the global room",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := login(cmd); err != nil {
				return err
			}
			chat, err := wire.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer chat.Close(cmd.Context())

			if _, err := chat.Messages.SendGlobal(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent to global")
			return nil
		},
	}
}
