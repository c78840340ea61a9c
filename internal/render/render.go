// Package render rasterizes PDF pages. The MuPDF backend (go-fitz) needs cgo
// and is only compiled with the "mupdf" build tag; other builds get a stub
// whose Open always fails with ErrUnavailable.
package render

import (
	"errors"
	"image"
)

// ErrUnavailable is returned by Open when no rendering backend is compiled in.
var ErrUnavailable = errors.New("document rendering not enabled in this build")

// Document is an opened PDF that can rasterize its pages. Page numbers are
// zero-based.
type Document interface {
	NumPage() int
	ImageDPI(page int, dpi float64) (image.Image, error)
	Close() error
}

// Opener opens a document from its raw bytes
type Opener func(data []byte) (Document, error)

// PointsDPI is the resolution at which one pixel equals one PDF point.
const PointsDPI = 72.0
