package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// Decode failures. All are terminal; a scanner must resubmit a new code.
var (
	// ErrFormat means the payload shape is wrong (not a 10-digit NISN and
	// not a well-formed envelope).
	ErrFormat = errors.New("format payload tidak valid")
	// ErrSignature means the envelope signature did not verify.
	ErrSignature = errors.New("signature tidak valid")
	// ErrUnsupported means the payload parsed as JSON but is not a
	// recognized envelope type.
	ErrUnsupported = errors.New("tipe payload tidak dikenal")
)

// envelopeType tags signed student card payloads.
const envelopeType = "student_card"

// Kind discriminates the two payload variants found on cards in the field.
type Kind string

const (
	// KindBare is the legacy QR payload: exactly the student's 10-digit NISN.
	KindBare Kind = "bare"
	// KindSigned is the JSON envelope with an HMAC-SHA256 signature.
	KindSigned Kind = "signed"
)

// Envelope is the signed card payload. The signature covers the
// sorted-key JSON of all other fields.
type Envelope struct {
	Type        string `json:"type"`
	NIS         string `json:"nis"`
	StudentID   int64  `json:"student_id"`
	CardVersion int    `json:"card_version"`
	Signature   string `json:"signature"`
}

// Payload is the decoded content of a scanned code.
type Payload struct {
	Kind     Kind
	NISN     string   // set for KindBare
	Envelope Envelope // set for KindSigned
}

// Codec encodes student identifiers into scannable payloads and
// validates payloads coming back from scanners.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec with the server-held signing secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// ValidNISN reports whether s is exactly 10 ASCII digits.
func ValidNISN(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// EncodeBare returns the bare QR payload for a NISN. The 10-digit shape
// is a hard precondition.
func (c *Codec) EncodeBare(nisn string) (string, error) {
	nisn = strings.TrimSpace(nisn)
	if !ValidNISN(nisn) {
		return "", ErrFormat
	}
	return nisn, nil
}

// EncodeSigned returns the signed envelope payload for a student card.
func (c *Codec) EncodeSigned(nis string, studentID int64, cardVersion int) (string, error) {
	if nis == "" {
		return "", ErrFormat
	}
	sig, err := c.sign(map[string]any{
		"type":         envelopeType,
		"nis":          nis,
		"student_id":   studentID,
		"card_version": cardVersion,
	})
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(Envelope{
		Type:        envelopeType,
		NIS:         nis,
		StudentID:   studentID,
		CardVersion: cardVersion,
		Signature:   sig,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Decode validates a raw scanned payload. The discriminator is
// structural: a 10-digit string is the bare variant, JSON is tried as a
// signed envelope, anything else is a format error. The client-declared
// type tag is never trusted without the signature verifying.
func (c *Codec) Decode(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if ValidNISN(raw) {
		return Payload{Kind: KindBare, NISN: raw}, nil
	}
	if !strings.HasPrefix(raw, "{") {
		return Payload{}, ErrFormat
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Payload{}, ErrFormat
	}
	if t, _ := fields["type"].(string); t != envelopeType {
		return Payload{}, ErrUnsupported
	}
	sig, _ := fields["signature"].(string)
	if sig == "" {
		return Payload{}, ErrFormat
	}
	delete(fields, "signature")
	expected, err := c.sign(fields)
	if err != nil {
		return Payload{}, err
	}
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return Payload{}, ErrSignature
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Payload{}, ErrFormat
	}
	if env.NIS == "" {
		return Payload{}, ErrFormat
	}
	return Payload{Kind: KindSigned, Envelope: env}, nil
}

// sign computes the hex HMAC-SHA256 over the canonical JSON of fields.
// encoding/json marshals map keys in sorted order, which is the
// canonical form the signature is defined over.
func (c *Codec) sign(fields map[string]any) (string, error) {
	msg, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
