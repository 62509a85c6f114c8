package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrEncryptionFailure indicates a value could not be sealed. Callers must
// treat this as a hard stop on the write path; the plaintext is never
// persisted as a fallback.
var ErrEncryptionFailure = errors.New("vault: encryption failure")

const maskFiller = '*'

// Vault seals and opens sensitive field values. Decrypt reports failure via
// its boolean rather than an error so display paths can render "unavailable"
// without ever touching a partially-opened value.
type Vault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, bool)
}

type aeadVault struct {
	key []byte
}

// New derives a process-wide vault from the deployment-supplied secret.
// The secret is hashed so operators can supply a passphrase of any length.
func New(secret string) (Vault, error) {
	if secret == "" {
		return nil, errors.New("vault: empty secret")
	}
	sum := sha256.Sum256([]byte(secret))
	return &aeadVault{key: sum[:]}, nil
}

func (v *aeadVault) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", ErrEncryptionFailure
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", ErrEncryptionFailure
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (v *aeadVault) Decrypt(ciphertext string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", false
	}
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", false
	}
	if len(raw) < aead.NonceSize() {
		return "", false
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}

// Mask replaces every character except the last four with the filler.
// Values of four or fewer characters are fully masked.
func Mask(plaintext string) string {
	runes := []rune(plaintext)
	if len(runes) <= 4 {
		return strings.Repeat(string(maskFiller), len(runes))
	}
	masked := make([]rune, len(runes))
	for i := range runes {
		if i >= len(runes)-4 {
			masked[i] = runes[i]
		} else {
			masked[i] = maskFiller
		}
	}
	return string(masked)
}
