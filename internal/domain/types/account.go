package types

// UserRecord is the server-side account record kept in the user store.
// ServerAuth and ServerSalt never leave the server.
type UserRecord struct {
	Username         Username      `json:"username"`
	ServerAuth       string        `json:"server_auth"`
	ServerSalt       string        `json:"server_salt"`
	KeySalt          string        `json:"key_salt"`
	PrivateKeyCipher EncryptedBlob `json:"private_key_cipher"`
	PublicKey        PublicKey     `json:"public_key"`
	PublicKeyHash    PublicKeyHash `json:"public_key_hash"`
	CreatedUTC       int64         `json:"created_utc"`
}

// Owner returns the subset of the record handed back to its authenticated owner.
func (r UserRecord) Owner() OwnerRecord {
	return OwnerRecord{
		Username:         r.Username,
		KeySalt:          r.KeySalt,
		PrivateKeyCipher: r.PrivateKeyCipher,
		PublicKey:        r.PublicKey,
		PublicKeyHash:    r.PublicKeyHash,
	}
}

// Public returns the directory entry for the record.
func (r UserRecord) Public() PublicKeyRecord {
	return PublicKeyRecord{
		Username:      r.Username,
		PublicKey:     r.PublicKey,
		PublicKeyHash: r.PublicKeyHash,
	}
}

// OwnerRecord is returned to the owner after a successful login.
type OwnerRecord struct {
	Username         Username      `json:"username"`
	KeySalt          string        `json:"keySalt"`
	PrivateKeyCipher EncryptedBlob `json:"privateKeyCipher"`
	PublicKey        PublicKey     `json:"publicKey"`
	PublicKeyHash    PublicKeyHash `json:"publicKeyHash"`
}

// PublicKeyRecord is a directory entry. Consumers must recompute the hash
// before trusting PublicKey.
type PublicKeyRecord struct {
	Username      Username      `json:"username"`
	PublicKey     PublicKey     `json:"publicKey"`
	PublicKeyHash PublicKeyHash `json:"publicKeyHash"`
}

// RegistrationPayload is sent by a client to create an account.
type RegistrationPayload struct {
	Username         Username      `json:"username"`
	Auth             string        `json:"auth"`
	PublicKey        PublicKey     `json:"publicKey"`
	PublicKeyHash    PublicKeyHash `json:"publicKeyHash"`
	PrivateKeyCipher EncryptedBlob `json:"privateKeyCipher"`
	KeySalt          string        `json:"keySalt"`
}

// LoginPayload is sent by a client to authenticate.
type LoginPayload struct {
	Username Username `json:"username"`
	Auth     string   `json:"auth"`
}

// AccountInfo describes the identity loaded into a client session.
type AccountInfo struct {
	Username      Username      `json:"username"`
	PublicKey     PublicKey     `json:"public_key"`
	PublicKeyHash PublicKeyHash `json:"public_key_hash"`
	Fingerprint   Fingerprint   `json:"fingerprint"`
}

// AccountProfile is the client-side record of an account on a specific server.
type AccountProfile struct {
	ServerURL     string        `json:"server_url"`
	Username      Username      `json:"username"`
	PublicKeyHash PublicKeyHash `json:"public_key_hash"`
	Fingerprint   Fingerprint   `json:"fingerprint"`
}
