//go:build mupdf

package render

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Available reports whether a rendering backend is compiled in
func Available() bool { return true }

// Open reads a PDF with MuPDF
func Open(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed reading document: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) NumPage() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) ImageDPI(page int, dpi float64) (image.Image, error) {
	if n := d.doc.NumPage(); page < 0 || page >= n {
		return nil, fmt.Errorf("cannot render page %d in document with %d pages", page+1, n)
	}
	img, err := d.doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed rendering page %d: %w", page+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
