package labels

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/ean"
	"github.com/skip2/go-qrcode"
)

const (
	moduleScale   = 3
	barcodeHeight = 100
	qrSize        = 256
)

type Symbology string

const (
	EAN13   Symbology = "ean13"
	EAN8    Symbology = "ean8"
	Code128 Symbology = "code128"
)

// SymbologyFor picks EAN for all-digit codes of EAN length and Code 128 for
// everything else.
func SymbologyFor(code string) Symbology {
	if !allDigits(code) {
		return Code128
	}
	switch len(code) {
	case 13:
		return EAN13
	case 8:
		return EAN8
	}
	return Code128
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// BarcodePNG renders code as a PNG data URI.
func BarcodePNG(code string) (template.URL, error) {
	var (
		bc  barcode.Barcode
		err error
	)
	switch SymbologyFor(code) {
	case EAN13, EAN8:
		bc, err = ean.Encode(code)
	default:
		bc, err = code128.Encode(code)
	}
	if err != nil {
		return "", fmt.Errorf("encode %q: %w", code, err)
	}
	scaled, err := barcode.Scale(bc, bc.Bounds().Dx()*moduleScale, barcodeHeight)
	if err != nil {
		return "", fmt.Errorf("scale %q: %w", code, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", err
	}
	return dataURI(buf.Bytes()), nil
}

// QRCodePNG renders text as a QR code PNG data URI.
func QRCodePNG(text string) (template.URL, error) {
	raw, err := qrcode.Encode(text, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("qr %q: %w", text, err)
	}
	return dataURI(raw), nil
}

func dataURI(pngBytes []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes))
}
