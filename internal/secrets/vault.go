package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

//nolint:gochecknoglobals // sentinel error
var ErrInvalidSecret = errors.New("secrets: invalid encryption secret")

// ErrDecryptFailed is returned when the authentication tag does not verify:
// the ciphertext was tampered with or a different key was used. Plaintext is
// never partially returned.
//
//nolint:gochecknoglobals // sentinel error
var ErrDecryptFailed = errors.New("secrets: decryption failed")

// keySize is the AES-256 key length.
const keySize = 32

// gcmTagSize is the GCM authentication tag length appended by Seal.
const gcmTagSize = 16

// staticSalt fixes the scrypt salt so the same operator secret always derives
// the same key. Acceptable only because the secret is high-entropy operator
// material, not a user password.
const staticSalt = "courier.token-cipher"

// EncryptedPayload is the at-rest form of an encrypted credential record.
// All three fields are hex-encoded.
type EncryptedPayload struct {
	Ciphertext string
	Nonce      string
	AuthTag    string
}

// Vault encrypts and decrypts credential payloads using AES-256-GCM.
type Vault struct {
	aead cipher.AEAD
}

// NewVault derives an AES-256 key from the operator secret via scrypt and
// builds the cipher. The secret must be at least 32 characters; config
// validates this too, but the vault cannot be constructed around the check.
func NewVault(secret string) (*Vault, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidSecret
	}

	key, err := scrypt.Key([]byte(secret), []byte(staticSalt), 32768, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce. The GCM tag is split
// from the ciphertext so it can be stored and verified as its own column.
func (v *Vault) Encrypt(plaintext []byte) (*EncryptedPayload, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("secrets.Encrypt: generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	return &EncryptedPayload{
		Ciphertext: hex.EncodeToString(ciphertext),
		Nonce:      hex.EncodeToString(nonce),
		AuthTag:    hex.EncodeToString(tag),
	}, nil
}

// Decrypt opens a sealed payload. Any authentication failure is reported as
// ErrDecryptFailed.
func (v *Vault) Decrypt(payload *EncryptedPayload) ([]byte, error) {
	ciphertext, err := hex.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("secrets.Decrypt: decode ciphertext: %w", err)
	}

	nonce, err := hex.DecodeString(payload.Nonce)
	if err != nil {
		return nil, fmt.Errorf("secrets.Decrypt: decode nonce: %w", err)
	}
	if len(nonce) != v.aead.NonceSize() {
		return nil, fmt.Errorf("secrets.Decrypt: %w", ErrDecryptFailed)
	}

	tag, err := hex.DecodeString(payload.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("secrets.Decrypt: decode auth tag: %w", err)
	}

	plaintext, err := v.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("secrets.Decrypt: %w", ErrDecryptFailed)
	}

	return plaintext, nil
}

// GenerateVerifyToken returns a hex-encoded random token suitable for
// webhook verification handshakes.
func GenerateVerifyToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("secrets.GenerateVerifyToken: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
