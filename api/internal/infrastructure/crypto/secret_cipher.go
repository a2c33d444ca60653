package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
	"runtime"

	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters. Changing them makes existing envelopes unreadable.
const (
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

var errEmptySecret = errors.New("crypto: secret material must not be empty")

// SecretCipher seals credentials with AES-256-GCM under a key derived per call
// from the process secret and a fresh salt. It is immutable after construction
// and safe for concurrent use.
type SecretCipher struct {
	secret []byte
	random io.Reader
}

// Option configures a SecretCipher.
type Option func(*SecretCipher)

// WithRandom replaces crypto/rand as the entropy source. The reader must be
// safe for concurrent use.
func WithRandom(r io.Reader) Option {
	return func(c *SecretCipher) { c.random = r }
}

// NewSecretCipher binds the secret material for the lifetime of the cipher.
func NewSecretCipher(secret string, opts ...Option) (*SecretCipher, error) {
	if secret == "" {
		return nil, errEmptySecret
	}
	c := &SecretCipher{
		secret: []byte(secret),
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encrypt returns the base64 envelope for plaintext. The empty string is
// passed through untouched so "no secret configured" survives storage.
func (c *SecretCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(c.random, salt); err != nil {
		return "", newError(KindEncryptionFailure, "encrypt", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", newError(KindEncryptionFailure, "encrypt", err)
	}

	aead, err := c.aead(salt)
	if err != nil {
		return "", newError(KindEncryptionFailure, "encrypt", err)
	}

	out := aead.Seal(nil, nonce, []byte(plaintext), nil)
	split := len(out) - TagSize

	return SealedEnvelope(Sealed{
		Salt:       salt,
		Nonce:      nonce,
		Tag:        out[split:],
		Ciphertext: out[:split],
	}).String(), nil
}

// Decrypt opens an envelope produced by Encrypt. It returns plaintext only
// when the authentication tag verifies.
func (c *SecretCipher) Decrypt(envelope string) (string, error) {
	env, err := ParseEnvelope(envelope)
	if err != nil {
		return "", err
	}
	sealed, ok := env.Sealed()
	if !ok {
		return "", nil
	}

	aead, err := c.aead(sealed.Salt)
	if err != nil {
		return "", newError(KindEncryptionFailure, "decrypt", err)
	}

	in := make([]byte, 0, len(sealed.Ciphertext)+TagSize)
	in = append(in, sealed.Ciphertext...)
	in = append(in, sealed.Tag...)

	plain, err := aead.Open(nil, sealed.Nonce, in, nil)
	if err != nil {
		return "", newError(KindTamperDetected, "decrypt", err)
	}
	return string(plain), nil
}

// aead derives the per-call key and builds the GCM instance. The key slice is
// wiped before returning; the block cipher keeps its own expanded schedule.
func (c *SecretCipher) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(c.secret, salt, scryptN, scryptR, scryptP, KeySize)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
