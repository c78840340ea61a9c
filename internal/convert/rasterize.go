package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/rarepdftool/pdftools/internal/render"
)

type RasterizerConfig struct {
	// DPI of the rendered pages (default 200).
	DPI float64

	// JPEGQuality for jpg output (default 90).
	JPEGQuality int

	// Workers bounds concurrent page renders (default 4).
	Workers int

	// Open opens documents for rendering (default render.Open).
	Open render.Opener

	Logger *slog.Logger
}

func (c *RasterizerConfig) defaults() {
	if c.DPI <= 0 {
		c.DPI = 200
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 90
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Open == nil {
		c.Open = render.Open
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Page is one rasterized page.
type Page struct {
	Number int
	Name   string
	Data   []byte
}

// Rasterizer turns every page of a PDF into an image.
type Rasterizer struct {
	cfg    RasterizerConfig
	logger *slog.Logger
}

func NewRasterizer(cfg RasterizerConfig) *Rasterizer {
	cfg.defaults()
	return &Rasterizer{cfg: cfg, logger: cfg.Logger}
}

// Rasterize renders all pages of pdf in the given format. Pages come back in
// document order and are named page_<n>.<ext>, starting at 1.
func (r *Rasterizer) Rasterize(ctx context.Context, pdf []byte, format Format) ([]Page, error) {
	if format != FormatPNG && format != FormatJPEG {
		return nil, fmt.Errorf("%w: cannot rasterize to %s", ErrInvalidInput, format)
	}

	doc, err := r.cfg.Open(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	n := doc.NumPage()
	doc.Close()
	if n < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidInput)
	}

	start := time.Now()
	pages := make([]Page, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := r.renderPage(pdf, i, format)
			if err != nil {
				return err
			}
			pages[i] = Page{
				Number: i + 1,
				Name:   fmt.Sprintf("page_%d.%s", i+1, format.Ext()),
				Data:   data,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("Rasterized document", "pages", n, "format", format, "dpi", r.cfg.DPI, "duration", time.Since(start))
	return pages, nil
}

// renderPage opens its own document; MuPDF handles are not shared between
// goroutines.
func (r *Rasterizer) renderPage(pdf []byte, page int, format Format) ([]byte, error) {
	doc, err := r.cfg.Open(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	img, err := doc.ImageDPI(page, r.cfg.DPI)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page+1, err)
	}

	var buf bytes.Buffer
	if err := r.encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", page+1, err)
	}
	return buf.Bytes(), nil
}

func (r *Rasterizer) encode(w io.Writer, img image.Image, format Format) error {
	if format == FormatJPEG {
		return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: r.cfg.JPEGQuality})
	}
	return png.Encode(w, img)
}

// ZipPages writes pages into a zip archive.
func ZipPages(w io.Writer, pages []Page) error {
	zw := zip.NewWriter(w)
	for _, p := range pages {
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.Name,
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", p.Name, err)
		}
		if _, err := f.Write(p.Data); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.Name, err)
		}
	}
	return zw.Close()
}
