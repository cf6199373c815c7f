// Package channel computes relay routing identifiers.
package channel

import (
	"crypto/sha256"
	"encoding/hex"

	"cipherchat/internal/domain"
)

// Global is the reserved name of the public plaintext room. It cannot
// collide with a pair ID, which is always 64 hex characters.
const Global domain.Channel = "global"

// ID returns the channel for the unordered pair {a, b}:
// hex(SHA-256(min(a,b) + ":" + max(a,b))).
func ID(a, b domain.PublicKeyHash) domain.Channel {
	if b < a {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a.String() + ":" + b.String()))
	return domain.Channel(hex.EncodeToString(sum[:]))
}

// IsGlobal reports whether c is the public room.
func IsGlobal(c domain.Channel) bool { return c == Global }

// Involves reports whether c is the pair channel of self and some peer, and
// if so which of the candidates it is.
func Involves(c domain.Channel, self domain.PublicKeyHash, candidates ...domain.PublicKeyHash) (domain.PublicKeyHash, bool) {
	for _, peer := range candidates {
		if ID(self, peer) == c {
			return peer, true
		}
	}
	return "", false
}
