// Package testutil builds image and PDF fixtures for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Image returns a solid-colored RGBA image of the given size
func Image(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// PNG encodes a w x h image as PNG
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Image(w, h, color.RGBA{R: 200, G: 40, B: 40, A: 255})); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a w x h image as JPEG
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Image(w, h, color.RGBA{R: 40, G: 40, B: 200, A: 255}), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// PDF builds a valid PDF with the given number of pages, one image per page.
func PDF(t testing.TB, pages int) []byte {
	t.Helper()
	imgs := make([]io.Reader, 0, pages)
	for i := 0; i < pages; i++ {
		imgs = append(imgs, bytes.NewReader(PNG(t, 10+i, 20)))
	}
	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, imgs, nil, model.NewDefaultConfiguration()); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return buf.Bytes()
}

// PageCount counts the pages of a PDF
func PageCount(t testing.TB, pdf []byte) int {
	t.Helper()
	n, err := api.PageCount(bytes.NewReader(pdf), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	return n
}

// Corrupt returns bytes that look like a PDF header but are not parseable.
func Corrupt() []byte {
	return []byte("%PDF-1.7\nthis is not a pdf body\n%%EOF")
}
