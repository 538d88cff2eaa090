package layout

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

const (
	barcodeHeight = 80
	qrCodeSize    = 256
)

// Decode decodes the base64 payload. A data URL prefix is accepted.
func (op ImageOp) Decode() (image.Image, error) {
	return DecodeBase64Image(op.Base64)
}

// Decode renders the barcode at twice its module width
func (op BarcodeOp) Decode() (image.Image, error) {
	code, err := code128.Encode(op.Value)
	if err != nil {
		return nil, errors.Wrapf(err, "encode barcode %q", op.Value)
	}

	scaled, err := barcode.Scale(code, code.Bounds().Dx()*2, barcodeHeight)
	if err != nil {
		return nil, errors.Wrap(err, "scale barcode")
	}
	return scaled, nil
}

// Decode renders the QR code
func (op QRCodeOp) Decode() (image.Image, error) {
	qr, err := qrcode.New(op.Value, qrcode.Medium)
	if err != nil {
		return nil, errors.Wrapf(err, "encode qr code %q", op.Value)
	}
	return qr.Image(qrCodeSize), nil
}

// DecodeBase64Image decodes a base64 PNG or JPEG, with or without a
// data:image/...;base64, prefix.
func DecodeBase64Image(data string) (image.Image, error) {
	if i := strings.Index(data, ","); i >= 0 && strings.HasPrefix(data, "data:") {
		data = data[i+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 image")
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return img, nil
}
