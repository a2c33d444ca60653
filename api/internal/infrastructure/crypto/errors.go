package crypto

import "errors"

// ErrorKind classifies a cipher failure so callers can switch on it without
// parsing messages.
type ErrorKind int

const (
	// KindEncryptionFailure means the entropy source or the cipher primitive
	// could not complete. Not caused by caller input.
	KindEncryptionFailure ErrorKind = iota + 1

	// KindInvalidCiphertext means the envelope failed to decode or is shorter
	// than its fixed header.
	KindInvalidCiphertext

	// KindTamperDetected means the authentication tag did not verify.
	KindTamperDetected
)

func (k ErrorKind) String() string {
	switch k {
	case KindEncryptionFailure:
		return "encryption failure"
	case KindInvalidCiphertext:
		return "invalid ciphertext"
	case KindTamperDetected:
		return "tamper detected"
	default:
		return "unknown"
	}
}

// Error is returned by every SecretCipher operation. It never carries
// plaintext, key material or envelope bytes.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := "crypto: "
	if e.Op != "" {
		msg += e.Op + ": "
	}
	msg += e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package sentinels work with
// errors.Is regardless of Op or the wrapped cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrEncryptionFailure = &Error{Kind: KindEncryptionFailure}
	ErrInvalidCiphertext = &Error{Kind: KindInvalidCiphertext}
	ErrTamperDetected    = &Error{Kind: KindTamperDetected}
)

// KindOf returns the kind of a cipher error, or 0 if err did not come from
// this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsUnreadable reports whether err means a stored envelope cannot be opened.
// Corruption and tampering are deliberately folded together.
func IsUnreadable(err error) bool {
	switch KindOf(err) {
	case KindInvalidCiphertext, KindTamperDetected:
		return true
	}
	return false
}

func newError(kind ErrorKind, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Err: cause}
}
