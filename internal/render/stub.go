//go:build !mupdf

package render

// Available reports whether a rendering backend is compiled in
func Available() bool { return false }

// Open is a stub implementation; build with -tags mupdf for MuPDF support.
func Open(_ []byte) (Document, error) {
	return nil, ErrUnavailable
}
