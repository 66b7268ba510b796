package helpers

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// TicketQRCode renders the ticket identifier as a PNG. The code carries the
// identifier and nothing else.
func TicketQRCode(ticketID string) ([]byte, error) {
	return qrcode.Encode(ticketID, qrcode.Medium, qrSize)
}

func TicketQRDataURL(ticketID string) (string, error) {
	png, err := TicketQRCode(ticketID)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
