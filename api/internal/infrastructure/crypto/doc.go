// Package crypto seals user-supplied credentials before they are persisted.
//
// Each Encrypt call draws a fresh 64-byte salt and 16-byte nonce, derives a
// 256-bit key from the process secret with scrypt, and seals the plaintext with
// AES-256-GCM. The result is a single base64 string:
//
//	salt | nonce | tag | ciphertext
//
// Decrypt rejects anything shorter than the fixed header before doing any key
// derivation, and returns plaintext only when the GCM tag verifies. The empty
// string encrypts and decrypts to itself.
package crypto
