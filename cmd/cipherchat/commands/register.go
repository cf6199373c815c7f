package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account on the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := usernameFrom(args)
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd, "New password: ")
			if err != nil {
				return err
			}
			confirm, err := readPassword(cmd, "Confirm password: ")
			if err != nil {
				return err
			}
			if pw != confirm {
				return errors.New("passwords do not match")
			}

			info, err := wire.Identity.Register(cmd.Context(), name, pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registered account")
			printAccount(cmd, info)
			return nil
		},
	}
	return cmd
}
