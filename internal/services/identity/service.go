package identity

import (
	"context"
	"errors"
	"fmt"
	"unicode"

	"github.com/rs/zerolog"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
	"cipherchat/internal/observability"
	idkeys "cipherchat/internal/protocol/identity"
	"cipherchat/internal/protocol/password"
	"cipherchat/internal/protocol/vault"
	"cipherchat/internal/session"
)

const (
	// minPasswordLength defines the minimum number of characters required for a password.
	minPasswordLength = 10
)

var (
	// ErrWeakPassword is returned when the password fails the strength policy.
	ErrWeakPassword = fmt.Errorf(
		"password is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPasswordLength,
	)

	// ErrInvalidUsername is returned for names the server would reject.
	ErrInvalidUsername = errors.New("username must be 3-32 characters of a-z, 0-9, '_', '.' or '-'")

	// ErrKeyMismatch is returned when the server's copy of the account keys
	// is inconsistent: the hash, public key and unwrapped private key must
	// all agree.
	ErrKeyMismatch = errors.New("server returned key material that does not belong to this account")

	// ErrProfileMismatch is returned when the server reports a different
	// public key than the one first seen for this account.
	ErrProfileMismatch = errors.New("account public key changed since first login")
)

// Service registers, logs in and logs out the local user.
type Service struct {
	accounts  domain.AccountClient
	profiles  domain.ProfileStore
	keyring   *session.Keyring
	serverURL string

	hier  *password.Hierarchy
	ids   *idkeys.Manager
	vault *vault.Vault

	log     zerolog.Logger
	metrics *observability.Metrics
}

// New returns an identity service. profiles may be nil to skip
// trust-on-first-use checks.
func New(
	accounts domain.AccountClient,
	profiles domain.ProfileStore,
	keyring *session.Keyring,
	serverURL string,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		accounts:  accounts,
		profiles:  profiles,
		keyring:   keyring,
		serverURL: serverURL,
		hier:      password.New(crypto.Default),
		ids:       idkeys.New(crypto.Default),
		vault:     vault.New(crypto.Default),
		log:       log.With().Str("component", "identity").Logger(),
		metrics:   metrics,
	}
}

// Register creates a new account on the server and starts a session for it.
func (s *Service) Register(ctx context.Context, username, pw string) (domain.AccountInfo, error) {
	name := password.NormalizeUsername(username)
	if !password.ValidUsername(name) {
		return domain.AccountInfo{}, ErrInvalidUsername
	}
	if !isSecurePassword(pw) {
		return domain.AccountInfo{}, ErrWeakPassword
	}

	auth, err := s.hier.ClientAuth(pw, name)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	kp, err := s.ids.GenerateIdentity()
	if err != nil {
		return domain.AccountInfo{}, fmt.Errorf("generate identity: %w", err)
	}
	defer crypto.Wipe(kp.PrivateKey)

	hash, err := s.ids.FingerprintHash(kp.PublicKey)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	keySalt, err := s.hier.NewSalt()
	if err != nil {
		return domain.AccountInfo{}, err
	}
	pp, err := s.hier.WrapPassphrase(auth, pw, keySalt)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	blob, err := s.vault.Wrap(kp.PrivateKey, pp, keySalt)
	if err != nil {
		return domain.AccountInfo{}, fmt.Errorf("wrap private key: %w", err)
	}
	s.metrics.RecordCryptoOperation("wrap")

	err = s.accounts.Register(ctx, domain.RegistrationPayload{
		Username:         domain.Username(name),
		Auth:             auth,
		PublicKey:        kp.PublicKey,
		PublicKeyHash:    hash,
		PrivateKeyCipher: blob,
		KeySalt:          keySalt,
	})
	if err != nil {
		return domain.AccountInfo{}, err
	}

	info := s.info(domain.Username(name), kp.PublicKey, hash)
	s.keyring.Load(info, kp.PrivateKey)
	if err := s.saveProfile(info); err != nil {
		return info, err
	}
	s.log.Info().Str("username", name).Str("public_key_hash", hash.String()).Msg("registered")
	return info, nil
}

// Login authenticates against the server, unwraps the private key and
// starts a session.
func (s *Service) Login(ctx context.Context, username, pw string) (domain.AccountInfo, error) {
	name := password.NormalizeUsername(username)
	auth, err := s.hier.ClientAuth(pw, name)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	owner, err := s.accounts.Login(ctx, domain.LoginPayload{Username: domain.Username(name), Auth: auth})
	if err != nil {
		return domain.AccountInfo{}, err
	}

	if !s.ids.VerifyFingerprint(owner.PublicKey, owner.PublicKeyHash) {
		return domain.AccountInfo{}, ErrKeyMismatch
	}
	if err := s.checkProfile(domain.Username(name), owner.PublicKeyHash); err != nil {
		return domain.AccountInfo{}, err
	}

	pp, err := s.hier.WrapPassphrase(auth, pw, owner.KeySalt)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	priv, err := s.vault.Unwrap(owner.PrivateKeyCipher, pp, owner.KeySalt)
	if err != nil {
		s.metrics.RecordDecryptFailure("private_key")
		return domain.AccountInfo{}, fmt.Errorf("unlock private key: %w", err)
	}
	defer crypto.Wipe(priv)
	s.metrics.RecordCryptoOperation("unwrap")

	if ok, err := idkeys.Matches(priv, owner.PublicKey); err != nil || !ok {
		return domain.AccountInfo{}, ErrKeyMismatch
	}

	info := s.info(domain.Username(name), owner.PublicKey, owner.PublicKeyHash)
	s.keyring.Load(info, priv)
	if err := s.saveProfile(info); err != nil {
		return info, err
	}
	s.log.Info().Str("username", name).Msg("logged in")
	return info, nil
}

// Logout wipes the session key.
func (s *Service) Logout() {
	if info, err := s.keyring.Identity(); err == nil {
		s.log.Info().Str("username", info.Username.String()).Msg("logged out")
	}
	s.keyring.Clear()
}

func (s *Service) info(name domain.Username, pub domain.PublicKey, hash domain.PublicKeyHash) domain.AccountInfo {
	return domain.AccountInfo{
		Username:      name,
		PublicKey:     pub,
		PublicKeyHash: hash,
		Fingerprint:   idkeys.FingerprintFromHash(hash),
	}
}

func (s *Service) checkProfile(name domain.Username, hash domain.PublicKeyHash) error {
	if s.profiles == nil {
		return nil
	}
	p, ok, err := s.profiles.LoadAccountProfile(s.serverURL, name)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if ok && p.PublicKeyHash != hash {
		s.log.Warn().
			Str("username", name.String()).
			Str("expected", p.PublicKeyHash.String()).
			Str("got", hash.String()).
			Msg("account key changed")
		return ErrProfileMismatch
	}
	return nil
}

func (s *Service) saveProfile(info domain.AccountInfo) error {
	if s.profiles == nil {
		return nil
	}
	return s.profiles.SaveAccountProfile(domain.AccountProfile{
		ServerURL:     s.serverURL,
		Username:      info.Username,
		PublicKeyHash: info.PublicKeyHash,
		Fingerprint:   info.Fingerprint,
	})
}

// isSecurePassword enforces a basic strength policy.
func isSecurePassword(pw string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len([]rune(pw)) < minPasswordLength {
		return false
	}
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
