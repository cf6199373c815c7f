package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cipherchat/internal/domain"
	"cipherchat/internal/protocol/identity"
	"cipherchat/internal/services/message"
)

func fingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint [username]",
		Short: "Print your fingerprint, or another user's from the directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				info, err := login(cmd)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", info.Fingerprint)
				return nil
			}
			rec, err := lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", rec.Username, identity.FingerprintFromHash(rec.PublicKeyHash))
			return nil
		},
	}
	return cmd
}

// lookup fetches a directory entry and checks it hashes to what it claims.
func lookup(ctx context.Context, username string) (domain.PublicKeyRecord, error) {
	rec, err := wire.API.PublicKeyByUsername(ctx, domain.Username(username))
	if err != nil {
		return domain.PublicKeyRecord{}, fmt.Errorf("look up %s: %w", username, err)
	}
	if !identity.VerifyFingerprint(rec.PublicKey, rec.PublicKeyHash) {
		return domain.PublicKeyRecord{}, message.ErrFingerprintMismatch
	}
	return rec, nil
}
