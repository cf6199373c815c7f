package interfaces

import domaintypes "cipherchat/internal/domain/types"

// UserStore persists server-side user records.
//
// CreateUser fails with ErrUserExists or ErrPublicKeyTaken and never
// overwrites an existing record.
type UserStore interface {
	CreateUser(record domaintypes.UserRecord) error
	GetUser(username domaintypes.Username) (domaintypes.UserRecord, bool, error)
	GetUserByPublicKeyHash(hash domaintypes.PublicKeyHash) (domaintypes.UserRecord, bool, error)
}

// ProfileStore persists per-server account profiles on the client. The first
// profile saved for a (server, username) pair pins that account's key.
type ProfileStore interface {
	SaveAccountProfile(profile domaintypes.AccountProfile) error
	LoadAccountProfile(
		serverURL string,
		username domaintypes.Username,
	) (domaintypes.AccountProfile, bool, error)
	ListAccountProfiles(serverURL string) ([]domaintypes.AccountProfile, error)
}
