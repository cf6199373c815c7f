package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cipherchat/internal/protocol/channel"
)

func channelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channel <username>",
		Short: "Print the private channel id you share with a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := login(cmd)
			if err != nil {
				return err
			}
			rec, err := lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), channel.ID(info.PublicKeyHash, rec.PublicKeyHash))
			return nil
		},
	}
}
