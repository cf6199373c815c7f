package domain

import (
	interfaces "cipherchat/internal/domain/interfaces"
	types "cipherchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username            = types.Username
	PublicKeyHash       = types.PublicKeyHash
	Fingerprint         = types.Fingerprint
	Channel             = types.Channel
	EncryptedBlob       = types.EncryptedBlob
	PublicKey           = types.PublicKey
	PrivateKey          = types.PrivateKey
	KeyPair             = types.KeyPair
	UserRecord          = types.UserRecord
	OwnerRecord         = types.OwnerRecord
	PublicKeyRecord     = types.PublicKeyRecord
	RegistrationPayload = types.RegistrationPayload
	LoginPayload        = types.LoginPayload
	AccountInfo         = types.AccountInfo
	AccountProfile      = types.AccountProfile
	MessageType         = types.MessageType
	Message             = types.Message
	Opened              = types.Opened
	EventName           = types.EventName
	Membership          = types.Membership
	Presence            = types.Presence
	Typing              = types.Typing
	ReadReceipt         = types.ReadReceipt
)

const (
	MessagePlain     = types.MessagePlain
	MessageSystem    = types.MessageSystem
	MessageEncrypted = types.MessageEncrypted

	EventJoin             = types.EventJoin
	EventLeave            = types.EventLeave
	EventPresenceAnnounce = types.EventPresenceAnnounce
	EventPresenceWithdraw = types.EventPresenceWithdraw
	EventMessage          = types.EventMessage
	EventTypingStart      = types.EventTypingStart
	EventTypingStop       = types.EventTypingStop
	EventReadReceipt      = types.EventReadReceipt
)

var (
	ErrInvalidCredentials = types.ErrInvalidCredentials
	ErrUserExists         = types.ErrUserExists
	ErrPublicKeyTaken     = types.ErrPublicKeyTaken
	ErrNotFound           = types.ErrNotFound
	ErrInvalidPayload     = types.ErrInvalidPayload
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	UserStore       = interfaces.UserStore
	ProfileStore    = interfaces.ProfileStore
	RelayConn       = interfaces.RelayConn
	AccountClient   = interfaces.AccountClient
	Directory       = interfaces.Directory
	AccountService  = interfaces.AccountService
	IdentityService = interfaces.IdentityService
	MessageService  = interfaces.MessageService
)
