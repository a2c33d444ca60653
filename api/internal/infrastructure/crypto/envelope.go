package crypto

import (
	"encoding/base64"
	"errors"
)

// Envelope layout. The header is fixed width and unversioned:
//
//	salt (64) | nonce (16) | tag (16) | ciphertext (n)
const (
	SaltSize   = 64
	NonceSize  = 16
	TagSize    = 16
	KeySize    = 32
	HeaderSize = SaltSize + NonceSize + TagSize
)

var encoding = base64.StdEncoding

var errShortEnvelope = errors.New("envelope shorter than header")

// Sealed is the decoded form of a non-empty envelope.
type Sealed struct {
	Salt       []byte
	Nonce      []byte
	Tag        []byte
	Ciphertext []byte
}

// Envelope is either empty (no secret stored) or sealed. The zero value is
// the empty envelope.
type Envelope struct {
	sealed *Sealed
}

// EmptyEnvelope returns the envelope that encodes to "".
func EmptyEnvelope() Envelope { return Envelope{} }

// SealedEnvelope wraps decoded parts.
func SealedEnvelope(s Sealed) Envelope { return Envelope{sealed: &s} }

func (e Envelope) IsEmpty() bool { return e.sealed == nil }

// Sealed returns the decoded parts and true, or false for the empty envelope.
func (e Envelope) Sealed() (Sealed, bool) {
	if e.sealed == nil {
		return Sealed{}, false
	}
	return *e.sealed, true
}

// String encodes the envelope for storage. The empty envelope encodes to "".
func (e Envelope) String() string {
	if e.sealed == nil {
		return ""
	}
	s := e.sealed
	buf := make([]byte, 0, HeaderSize+len(s.Ciphertext))
	buf = append(buf, s.Salt...)
	buf = append(buf, s.Nonce...)
	buf = append(buf, s.Tag...)
	buf = append(buf, s.Ciphertext...)
	return encoding.EncodeToString(buf)
}

// ParseEnvelope decodes a stored envelope. "" yields the empty envelope.
// Anything that is not valid base64 or is shorter than HeaderSize once
// decoded is rejected with ErrInvalidCiphertext.
func ParseEnvelope(s string) (Envelope, error) {
	if s == "" {
		return EmptyEnvelope(), nil
	}
	raw, err := encoding.DecodeString(s)
	if err != nil {
		return Envelope{}, newError(KindInvalidCiphertext, "parse", err)
	}
	if len(raw) < HeaderSize {
		return Envelope{}, newError(KindInvalidCiphertext, "parse", errShortEnvelope)
	}
	return SealedEnvelope(Sealed{
		Salt:       raw[:SaltSize],
		Nonce:      raw[SaltSize : SaltSize+NonceSize],
		Tag:        raw[SaltSize+NonceSize : HeaderSize],
		Ciphertext: raw[HeaderSize:],
	}), nil
}
