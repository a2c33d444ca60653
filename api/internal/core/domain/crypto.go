package domain

// SecretCipher is the contract for sealing credentials at rest.
// Implementations are synchronous and safe for concurrent use.
type SecretCipher interface {
	// Encrypt returns an opaque envelope for plaintext. "" maps to "".
	Encrypt(plaintext string) (string, error)

	// Decrypt verifies and opens an envelope. It never returns plaintext
	// together with an error.
	Decrypt(envelope string) (string, error)
}
