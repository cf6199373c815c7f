package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cipherchat/internal/protocol/identity"
)

// verify <username> <fingerprint>: compare the directory key against a
// fingerprint obtained out of band.
func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <username> <fingerprint>",
		Short: "Compare a user's fingerprint with one you obtained in person",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			want := compact(strings.Join(args[1:], ""))
			got := identity.FingerprintFromHash(rec.PublicKeyHash)
			if compact(got.String()) != want {
				return fmt.Errorf("fingerprint MISMATCH for %s: directory has %s", rec.Username, got)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint matches for %s\n", rec.Username)
			return nil
		},
	}
}

func compact(fp string) string {
	return strings.ToUpper(strings.Join(strings.Fields(fp), ""))
}
