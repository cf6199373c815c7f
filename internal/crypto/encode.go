package crypto

import (
	"encoding/base64"
	"fmt"
)

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// EncodeBlob packs iv and ciphertext||tag into the single opaque
// EncryptedBlob string base64(iv || ciphertext || tag).
func EncodeBlob(iv, sealed []byte) string {
	buf := make([]byte, 0, len(iv)+len(sealed))
	buf = append(buf, iv...)
	buf = append(buf, sealed...)
	return B64(buf)
}

// DecodeBlob splits an EncryptedBlob back into iv and ciphertext||tag.
func DecodeBlob(blob string) (iv, sealed []byte, err error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: blob is not base64: %v", ErrInput, err)
	}
	if len(raw) < IVSize+TagSize {
		return nil, nil, fmt.Errorf("%w: blob too short (%d bytes)", ErrInput, len(raw))
	}
	return raw[:IVSize], raw[IVSize:], nil
}
