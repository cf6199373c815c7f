package interfaces

import (
	"context"

	domaintypes "cipherchat/internal/domain/types"
)

// AccountService is the server side of registration and login.
type AccountService interface {
	Directory
	Register(ctx context.Context, payload domaintypes.RegistrationPayload) error
	Login(ctx context.Context, payload domaintypes.LoginPayload) (domaintypes.OwnerRecord, error)
}

// IdentityService is the client side of registration, login and logout.
type IdentityService interface {
	Register(ctx context.Context, username, password string) (domaintypes.AccountInfo, error)
	Login(ctx context.Context, username, password string) (domaintypes.AccountInfo, error)
	Logout()
}

// MessageService sends, opens and acknowledges chat messages over the relay.
type MessageService interface {
	Join(ctx context.Context, channel domaintypes.Channel) error
	SendGlobal(ctx context.Context, text string) (domaintypes.Message, error)
	SendPrivate(ctx context.Context, peer domaintypes.PublicKeyHash, text string) (domaintypes.Message, error)
	Open(ctx context.Context, msg domaintypes.Message) domaintypes.Opened
	MarkRead(ctx context.Context, msg domaintypes.Message) error
}
