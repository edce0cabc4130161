package token

import qrcode "github.com/skip2/go-qrcode"

// QRImage renders a payload as a PNG suitable for card printing.
func QRImage(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, 256)
}
