package cipher

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveSessionKey derives a fresh AES key and CBC IV for one CreditStream
// session from a long-lived master secret (typically the plaintext
// returned by KeyManager.UnwrapKey) and a session identifier, so that no
// two sessions ever reuse the same key/IV pair under the same master
// secret. keyLen selects AES-128/192/256 (16/24/32).
func DeriveSessionKey(secret []byte, sessionID string, keyLen int) (key, iv []byte, err error) {
	hk := hkdf.New(sha256.New, secret, []byte(sessionID), []byte("creditstream-session-key"))

	key = make([]byte, keyLen)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, nil, err
	}

	iv = make([]byte, 16) // AES block size
	if _, err := io.ReadFull(hk, iv); err != nil {
		return nil, nil, err
	}

	return key, iv, nil
}
