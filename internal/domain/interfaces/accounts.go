package interfaces

import (
	"context"

	domaintypes "cipherchat/internal/domain/types"
)

// AccountClient is how a client talks to the account API.
type AccountClient interface {
	Register(ctx context.Context, payload domaintypes.RegistrationPayload) error
	Login(ctx context.Context, payload domaintypes.LoginPayload) (domaintypes.OwnerRecord, error)
}

// Directory resolves public keys. Results are untrusted until their hash is
// recomputed.
type Directory interface {
	PublicKeyByHash(ctx context.Context, hash domaintypes.PublicKeyHash) (domaintypes.PublicKeyRecord, error)
	PublicKeyByUsername(ctx context.Context, username domaintypes.Username) (domaintypes.PublicKeyRecord, error)
}
