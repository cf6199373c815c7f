// Package session holds the decrypted private key of the logged-in account.
//
// The key exists only between a successful login or registration and the
// next logout. Callers never receive the key itself; they borrow it through
// WithPrivateKey for the duration of one agreement or vault operation.
package session

import (
	"bytes"
	"errors"
	"sync"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
)

// ErrNoSession is returned when no account is logged in.
var ErrNoSession = errors.New("no active session; log in first")

// Keyring is safe for concurrent use.
type Keyring struct {
	mu   sync.RWMutex
	info domain.AccountInfo
	priv domain.PrivateKey
}

// NewKeyring returns an empty keyring.
func NewKeyring() *Keyring { return &Keyring{} }

// Load replaces any current session with info and a copy of priv.
func (k *Keyring) Load(info domain.AccountInfo, priv domain.PrivateKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	crypto.Wipe(k.priv)
	k.info = info
	k.priv = bytes.Clone(priv)
}

// Clear wipes the key and forgets the account.
func (k *Keyring) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	crypto.Wipe(k.priv)
	k.priv = nil
	k.info = domain.AccountInfo{}
}

// Active reports whether a session is loaded.
func (k *Keyring) Active() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.priv != nil
}

// Identity returns the public description of the logged-in account.
func (k *Keyring) Identity() (domain.AccountInfo, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.priv == nil {
		return domain.AccountInfo{}, ErrNoSession
	}
	return k.info, nil
}

// WithPrivateKey calls fn with the session key. fn must not retain it.
func (k *Keyring) WithPrivateKey(fn func(domain.PrivateKey) error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.priv == nil {
		return ErrNoSession
	}
	return fn(k.priv)
}
