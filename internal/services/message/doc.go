// Package message sends, opens and acknowledges chat messages over the relay.
//
// Messages in the global room travel as plaintext. Messages to a single peer
// are sealed field by field with the key agreed between the two identities,
// and travel on the pair channel derived from both public key hashes. Peer
// keys come from a Directory and are only used after their hash has been
// recomputed locally.
package message
