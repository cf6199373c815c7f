// Package domain re-exports the wire types, error sentinels and collaborator
// contracts shared across cipherchat.
//
// Types live in domain/types and interfaces in domain/interfaces; this
// package aliases both so callers import a single path.
package domain
