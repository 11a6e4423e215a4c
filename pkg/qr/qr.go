// Package qr issues the member QR token and renders it as a PNG.
package qr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	tokenPrefix = "BANKSAMPAH-"
	imageSize   = 256
	dataURLHead = "data:image/png;base64,"
)

var ErrBadDataURL = errors.New("not a png data url")

// Token builds the QR payload for a member: BANKSAMPAH-<email>-<unix millis>.
func Token(email string, at time.Time) string {
	return fmt.Sprintf("%s%s-%d", tokenPrefix, strings.ToLower(strings.TrimSpace(email)), at.UnixMilli())
}

// IsToken reports whether s has the shape produced by Token.
func IsToken(s string) bool {
	rest, ok := strings.CutPrefix(s, tokenPrefix)
	if !ok {
		return false
	}
	i := strings.LastIndexByte(rest, '-')
	return i > 0 && i < len(rest)-1
}

// PNG renders content as a QR code image.
func PNG(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, imageSize)
}

// DataURL renders content and returns it as a base64 PNG data URL.
func DataURL(content string) (string, error) {
	png, err := PNG(content)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return dataURLHead + base64.StdEncoding.EncodeToString(png), nil
}

// DecodeDataURL extracts the PNG bytes of a data URL produced by DataURL.
func DecodeDataURL(s string) ([]byte, error) {
	payload, ok := strings.CutPrefix(s, dataURLHead)
	if !ok {
		return nil, ErrBadDataURL
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	return b, nil
}

// Issue returns a fresh token and its data URL.
func Issue(email string, at time.Time) (token, dataURL string, err error) {
	token = Token(email, at)
	dataURL, err = DataURL(token)
	return token, dataURL, err
}
