package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
	"cipherchat/internal/observability"
	"cipherchat/internal/protocol/identity"
	"cipherchat/internal/protocol/password"
)

// Service validates and stores accounts.
type Service struct {
	users   domain.UserStore
	hier    *password.Hierarchy
	ids     *identity.Manager
	log     zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time

	// dummySalt is spent on logins for unknown users.
	dummySalt string
}

// New returns an account service over users. p may be nil.
func New(
	users domain.UserStore,
	p crypto.Primitives,
	log zerolog.Logger,
	metrics *observability.Metrics,
) (*Service, error) {
	hier := password.New(p)
	salt, err := hier.NewSalt()
	if err != nil {
		return nil, err
	}
	return &Service{
		users:     users,
		hier:      hier,
		ids:       identity.New(p),
		log:       log.With().Str("component", "account").Logger(),
		metrics:   metrics,
		now:       time.Now,
		dummySalt: salt,
	}, nil
}

// Register creates an account from a client payload.
func (s *Service) Register(ctx context.Context, payload domain.RegistrationPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := s.validate(payload)
	if err != nil {
		s.metrics.RecordRegistration(false)
		return err
	}

	serverSalt, err := s.hier.NewSalt()
	if err != nil {
		return err
	}
	serverAuth, err := s.hier.ServerAuth(payload.Auth, serverSalt)
	if err != nil {
		return err
	}
	rec.ServerSalt = serverSalt
	rec.ServerAuth = serverAuth
	rec.CreatedUTC = s.now().UTC().Unix()

	if err := s.users.CreateUser(rec); err != nil {
		s.metrics.RecordRegistration(false)
		s.log.Info().Err(err).Str("username", rec.Username.String()).Msg("registration rejected")
		return err
	}
	s.metrics.RecordRegistration(true)
	s.log.Info().
		Str("username", rec.Username.String()).
		Str("public_key_hash", rec.PublicKeyHash.String()).
		Msg("user registered")
	return nil
}

func (s *Service) validate(p domain.RegistrationPayload) (domain.UserRecord, error) {
	name := password.NormalizeUsername(p.Username.String())
	if !password.ValidUsername(name) {
		return domain.UserRecord{}, fmt.Errorf("%w: username must be 3-32 of a-z 0-9 _ . -", domain.ErrInvalidPayload)
	}
	if !password.ValidClientAuth(p.Auth) {
		return domain.UserRecord{}, fmt.Errorf("%w: auth must be 128 hex characters", domain.ErrInvalidPayload)
	}
	if _, err := identity.ParsePublicKey(p.PublicKey); err != nil {
		return domain.UserRecord{}, fmt.Errorf("%w: public key: %v", domain.ErrInvalidPayload, err)
	}
	if !s.ids.VerifyFingerprint(p.PublicKey, p.PublicKeyHash) {
		return domain.UserRecord{}, fmt.Errorf("%w: public key hash does not match public key", domain.ErrInvalidPayload)
	}
	if _, err := password.DecodeSalt(p.KeySalt); err != nil {
		return domain.UserRecord{}, fmt.Errorf("%w: key salt: %v", domain.ErrInvalidPayload, err)
	}
	if _, _, err := crypto.DecodeBlob(p.PrivateKeyCipher.String()); err != nil {
		return domain.UserRecord{}, fmt.Errorf("%w: private key cipher: %v", domain.ErrInvalidPayload, err)
	}
	return domain.UserRecord{
		Username:         domain.Username(name),
		KeySalt:          strings.ToLower(p.KeySalt),
		PrivateKeyCipher: p.PrivateKeyCipher,
		PublicKey:        p.PublicKey,
		PublicKeyHash:    domain.PublicKeyHash(strings.ToLower(p.PublicKeyHash.String())),
	}, nil
}

// Login verifies clientAuth and returns the owner's record.
func (s *Service) Login(ctx context.Context, payload domain.LoginPayload) (domain.OwnerRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.OwnerRecord{}, err
	}
	name := domain.Username(password.NormalizeUsername(payload.Username.String()))
	rec, found, err := s.users.GetUser(name)
	if err != nil {
		return domain.OwnerRecord{}, fmt.Errorf("load user: %w", err)
	}

	salt := s.dummySalt
	if found {
		salt = rec.ServerSalt
	}
	computed, err := s.hier.ServerAuth(payload.Auth, salt)
	if err != nil || !found || !password.VerifyServerAuth(rec.ServerAuth, computed) {
		s.metrics.RecordLogin(false)
		s.log.Info().Str("username", name.String()).Msg("login rejected")
		return domain.OwnerRecord{}, domain.ErrInvalidCredentials
	}

	s.metrics.RecordLogin(true)
	s.log.Debug().Str("username", name.String()).Msg("login accepted")
	return rec.Owner(), nil
}

// PublicKeyByHash returns the directory entry bound to hash.
func (s *Service) PublicKeyByHash(ctx context.Context, hash domain.PublicKeyHash) (domain.PublicKeyRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PublicKeyRecord{}, err
	}
	rec, found, err := s.users.GetUserByPublicKeyHash(hash)
	if err != nil {
		return domain.PublicKeyRecord{}, err
	}
	if !found {
		return domain.PublicKeyRecord{}, domain.ErrNotFound
	}
	return rec.Public(), nil
}

// PublicKeyByUsername returns the directory entry for username.
func (s *Service) PublicKeyByUsername(ctx context.Context, username domain.Username) (domain.PublicKeyRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PublicKeyRecord{}, err
	}
	rec, found, err := s.users.GetUser(domain.Username(password.NormalizeUsername(username.String())))
	if err != nil {
		return domain.PublicKeyRecord{}, err
	}
	if !found {
		return domain.PublicKeyRecord{}, domain.ErrNotFound
	}
	return rec.Public(), nil
}

// Compile-time assertion that Service implements domain.AccountService.
var _ domain.AccountService = (*Service)(nil)
