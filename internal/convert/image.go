package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format is an output image format.
type Format string

const (
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ParseFormat accepts a format name or common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("%w: unsupported image format %q", ErrInvalidInput, s)
	}
}

func (f Format) Ext() string { return string(f) }

func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// ImageConverter re-encodes images between formats. Input may be any of the
// output formats or WebP.
type ImageConverter struct {
	// JPEGQuality for jpg output (default 90).
	JPEGQuality int

	// MaxWidth scales wider images down, keeping the aspect ratio. Zero
	// disables resizing.
	MaxWidth int
}

// Convert decodes data and encodes it as to.
func (c ImageConverter) Convert(data []byte, to Format) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrInvalidInput, err)
	}
	if c.MaxWidth > 0 && img.Bounds().Dx() > c.MaxWidth {
		img = resize(img, c.MaxWidth)
	}

	var buf bytes.Buffer
	if err := c.encode(&buf, img, to); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", to, err)
	}
	return buf.Bytes(), nil
}

func (c ImageConverter) encode(w io.Writer, img image.Image, to Format) error {
	switch to {
	case FormatJPEG:
		q := c.JPEGQuality
		if q <= 0 || q > 100 {
			q = 90
		}
		return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: q})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatGIF:
		return gif.Encode(w, img, nil)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: unsupported image format %q", ErrInvalidInput, to)
	}
}

func resize(img image.Image, width int) image.Image {
	b := img.Bounds()
	height := max(1, b.Dy()*width/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// flatten composites img over white. JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
