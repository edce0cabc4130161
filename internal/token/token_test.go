package token

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeBareRoundTrip(t *testing.T) {
	c := NewCodec("test-secret")
	for _, nisn := range []string{"0096279244", "1234567890", "0000000000"} {
		payload, err := c.EncodeBare(nisn)
		if err != nil {
			t.Fatalf("EncodeBare(%q): %v", nisn, err)
		}
		decoded, err := c.Decode(payload)
		if err != nil {
			t.Fatalf("Decode(%q): %v", payload, err)
		}
		if decoded.Kind != KindBare || decoded.NISN != nisn {
			t.Errorf("round trip %q: got kind=%v nisn=%q", nisn, decoded.Kind, decoded.NISN)
		}
	}
}

func TestNISNBoundary(t *testing.T) {
	c := NewCodec("test-secret")
	for _, bad := range []string{"", "12345", "12345678901", "123456789A", "12345 7890", "١٢٣٤٥٦٧٨٩٠"} {
		if _, err := c.EncodeBare(bad); !errors.Is(err, ErrFormat) {
			t.Errorf("EncodeBare(%q): want ErrFormat, got %v", bad, err)
		}
		if _, err := c.Decode(bad); !errors.Is(err, ErrFormat) {
			t.Errorf("Decode(%q): want ErrFormat, got %v", bad, err)
		}
	}
}

func TestSignedRoundTrip(t *testing.T) {
	c := NewCodec("test-secret")
	payload, err := c.EncodeSigned("2021001", 42, 3)
	if err != nil {
		t.Fatalf("EncodeSigned: %v", err)
	}
	decoded, err := c.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Kind != KindSigned {
		t.Fatalf("kind = %v, want signed", decoded.Kind)
	}
	env := decoded.Envelope
	if env.NIS != "2021001" || env.StudentID != 42 || env.CardVersion != 3 {
		t.Errorf("envelope = %+v", env)
	}
}

func TestSignedTamperDetection(t *testing.T) {
	c := NewCodec("test-secret")
	payload, err := c.EncodeSigned("2021001", 42, 3)
	if err != nil {
		t.Fatalf("EncodeSigned: %v", err)
	}

	cases := map[string]string{
		"nis swapped":         strings.Replace(payload, "2021001", "2021002", 1),
		"card version bumped": strings.Replace(payload, `"card_version":3`, `"card_version":4`, 1),
		"student id changed":  strings.Replace(payload, `"student_id":42`, `"student_id":43`, 1),
		"signature bit flip":  flipSignatureChar(t, payload),
		"signed by wrong key": mustEncode(t, NewCodec("other-secret"), "2021001", 42, 3),
	}
	for name, tampered := range cases {
		if tampered == payload {
			t.Fatalf("%s: tampering had no effect", name)
		}
		if _, err := c.Decode(tampered); !errors.Is(err, ErrSignature) {
			t.Errorf("%s: want ErrSignature, got %v", name, err)
		}
	}
}

func TestDecodeUnsupportedEnvelope(t *testing.T) {
	c := NewCodec("test-secret")
	if _, err := c.Decode(`{"type":"teacher_card","nis":"1","signature":"ab"}`); !errors.Is(err, ErrUnsupported) {
		t.Errorf("want ErrUnsupported, got %v", err)
	}
	if _, err := c.Decode(`{"nis":"1"}`); !errors.Is(err, ErrUnsupported) {
		t.Errorf("missing type: want ErrUnsupported, got %v", err)
	}
}

func TestDecodeMissingSignature(t *testing.T) {
	c := NewCodec("test-secret")
	if _, err := c.Decode(`{"type":"student_card","nis":"2021001","student_id":1,"card_version":1}`); !errors.Is(err, ErrFormat) {
		t.Errorf("want ErrFormat, got %v", err)
	}
}

func TestDecodeIdempotent(t *testing.T) {
	c := NewCodec("test-secret")
	payload, err := c.EncodeSigned("2021001", 42, 3)
	if err != nil {
		t.Fatalf("EncodeSigned: %v", err)
	}
	first, err := c.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := c.Decode(payload)
		if err != nil {
			t.Fatalf("Decode #%d: %v", i+2, err)
		}
		if again != first {
			t.Fatalf("Decode #%d = %+v, want %+v", i+2, again, first)
		}
	}
}

func flipSignatureChar(t *testing.T, payload string) string {
	t.Helper()
	idx := strings.Index(payload, `"signature":"`)
	if idx < 0 {
		t.Fatal("payload has no signature field")
	}
	pos := idx + len(`"signature":"`)
	b := []byte(payload)
	if b[pos] == 'a' {
		b[pos] = 'b'
	} else {
		b[pos] = 'a'
	}
	return string(b)
}

func mustEncode(t *testing.T, c *Codec, nis string, id int64, version int) string {
	t.Helper()
	payload, err := c.EncodeSigned(nis, id, version)
	if err != nil {
		t.Fatalf("EncodeSigned: %v", err)
	}
	return payload
}
