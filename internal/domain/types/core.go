package types

// Username is the account name. Stored and compared in normalised
// (trimmed, lowercase) form.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// PublicKeyHash is hex(SHA-256(serialized public key)), the account's stable
// public identifier.
type PublicKeyHash string

// String returns the string form of the hash.
func (h PublicKeyHash) String() string { return string(h) }

// Fingerprint is the grouped, uppercase display form of a public key hash.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Channel is a relay routing identifier: the public room literal or the hex
// SHA-256 of a sorted pair of public key hashes.
type Channel string

// String returns the string form of the channel.
func (c Channel) String() string { return string(c) }

// EncryptedBlob is base64(iv || ciphertext || tag).
type EncryptedBlob string

// String returns the string form of the blob.
func (b EncryptedBlob) String() string { return string(b) }
