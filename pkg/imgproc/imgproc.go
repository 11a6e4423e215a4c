// Package imgproc turns one uploaded article image into the fixed set of
// responsive JPEG renditions served to the front-end.
package imgproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the webp decoder with image.Decode
)

// Variant is a named target width. Images narrower than Width are not upscaled.
type Variant struct {
	Name  string
	Width int
}

// Variants are rendered in this order.
var Variants = []Variant{
	{Name: "desktop", Width: 1200},
	{Name: "tablet", Width: 768},
	{Name: "mobile", Width: 480},
}

const jpegQuality = 82

// ErrUnsupported is returned when the upload is not a decodable image.
var ErrUnsupported = errors.New("unsupported image")

// AllowedContentTypes are the declared upload types accepted by the article endpoint.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Rendition is one encoded variant.
type Rendition struct {
	Variant string
	Width   int
	Height  int
	Data    []byte
}

// MaxPixels bounds width × height of an accepted upload. A small compressed
// file can declare dimensions that take gigabytes once decoded.
var MaxPixels = 40_000_000

// Decode reads an image, applying EXIF orientation for JPEGs. The header is
// checked against MaxPixels before any pixel data is decoded.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupported)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(MaxPixels) {
		return nil, fmt.Errorf("%w: %dx%d pixels is too large", ErrUnsupported, cfg.Width, cfg.Height)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupported)
	}
	return img, nil
}

// Render produces one JPEG per entry in Variants, keeping the aspect ratio.
func Render(img image.Image) ([]Rendition, error) {
	out := make([]Rendition, 0, len(Variants))
	for _, v := range Variants {
		r, err := render(img, v)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", v.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func render(img image.Image, v Variant) (Rendition, error) {
	var dst image.Image
	if img.Bounds().Dx() > v.Width {
		dst = imaging.Resize(img, v.Width, 0, imaging.Lanczos)
	} else {
		dst = imaging.Clone(img)
	}
	// JPEG has no alpha; flatten transparent PNG/WebP onto white.
	bg := imaging.New(dst.Bounds().Dx(), dst.Bounds().Dy(), image.White.C)
	flat := imaging.Overlay(bg, dst, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return Rendition{}, err
	}
	return Rendition{
		Variant: v.Name,
		Width:   flat.Bounds().Dx(),
		Height:  flat.Bounds().Dy(),
		Data:    buf.Bytes(),
	}, nil
}
