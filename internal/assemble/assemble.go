// Package assemble turns an ordered list of merge items into one PDF.
//
// Documents contribute all of their pages in order. Every raster image
// becomes one page sized to the image plus a uniform margin. Page numbers are
// stamped last.
package assemble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/dustin/go-humanize"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/rarepdftool/pdftools/internal/models"
)

const (
	DefaultMargin       = 16.0
	MaxMargin           = 64.0
	DefaultMaxPageWidth = 595.0
)

// Options control one assembly run.
type Options struct {
	// Margin around each image page, in points.
	Margin float64

	// MaxPageWidth caps the content width of image pages, in points.
	MaxPageWidth float64

	// PageNumbers stamps 1..N on the output.
	PageNumbers bool
}

func DefaultOptions() Options {
	return Options{
		Margin:       DefaultMargin,
		MaxPageWidth: DefaultMaxPageWidth,
		PageNumbers:  true,
	}
}

// Validate checks the options against the allowed ranges.
func (o Options) Validate() error {
	if o.Margin < 0 || o.Margin > MaxMargin {
		return fmt.Errorf("margin %.1f out of range [0, %.0f]", o.Margin, MaxMargin)
	}
	if o.MaxPageWidth <= 0 {
		return fmt.Errorf("max page width must be positive, got %.1f", o.MaxPageWidth)
	}
	return nil
}

// PageSource maps one output page back to the item that produced it.
type PageSource struct {
	ItemID string `json:"item_id"`
	// Index is the zero-based page index within the item.
	Index int `json:"index"`
}

// Result is a finished assembly.
type Result struct {
	PDF       []byte
	PageCount int
	Pages     []PageSource
}

type Config struct {
	Logger *slog.Logger
}

// Assembler builds PDFs from merge items. It is safe for concurrent use.
type Assembler struct {
	logger *slog.Logger
}

func New(cfg Config) *Assembler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Assembler{logger: cfg.Logger}
}

// part is the PDF contribution of one item.
type part struct {
	item  models.Item
	pdf   []byte
	pages int
}

// Run assembles items in the given order. The slice is read once; later
// changes to the caller's ordering do not affect this run.
func (a *Assembler) Run(ctx context.Context, items []models.Item, opts Options) (*Result, error) {
	if len(items) == 0 {
		return nil, ErrAssemblyEmpty
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	parts := make([]part, 0, len(items))
	var failures []ItemFailure
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := a.render(it, opts)
		if err != nil {
			a.logger.Warn("Unreadable source", "item_id", it.ID, "name", it.Name, "err", err)
			failures = append(failures, ItemFailure{ItemID: it.ID, Name: it.Name, Err: err})
			continue
		}
		parts = append(parts, p)
	}
	if len(failures) > 0 {
		return nil, &SourceError{Failures: failures}
	}

	merged, err := a.concat(parts)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, p := range parts {
		for i := range p.pages {
			res.Pages = append(res.Pages, PageSource{ItemID: p.item.ID, Index: i})
		}
	}
	res.PageCount = len(res.Pages)

	if opts.PageNumbers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		merged, err = NumberPages(merged)
		if err != nil {
			return nil, err
		}
	}
	res.PDF = merged

	a.logger.Info("Assembled document",
		"items", len(items),
		"pages", res.PageCount,
		"size", humanize.IBytes(uint64(len(merged))),
		"duration", time.Since(start))

	return res, nil
}

func (a *Assembler) render(it models.Item, opts Options) (part, error) {
	switch it.Kind {
	case models.KindDocument:
		return a.document(it)
	case models.KindRasterImage, models.KindUnknown:
		// Unknown sources are given a chance as images.
		return a.image(it, opts)
	default:
		return part{}, fmt.Errorf("unsupported kind %s", it.Kind)
	}
}

func (a *Assembler) document(it models.Item) (part, error) {
	n, err := api.PageCount(bytes.NewReader(it.Source), relaxedConfig())
	if err != nil {
		return part{}, fmt.Errorf("failed to read document: %w", err)
	}
	if n < 1 {
		return part{}, errors.New("document has no pages")
	}
	return part{item: it, pdf: it.Source, pages: n}, nil
}

func (a *Assembler) image(it models.Item, opts Options) (part, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(it.Source))
	if err != nil {
		return part{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return part{}, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}

	data := it.Source
	if format != "jpeg" && format != "png" {
		data, err = transcodePNG(it.Source)
		if err != nil {
			return part{}, err
		}
	}

	layout := ImageLayout(cfg.Width, cfg.Height, opts.MaxPageWidth, opts.Margin)
	desc := fmt.Sprintf("dimensions:%.2f %.2f, position:c, scalefactor:%.6f abs",
		layout.PageWidth, layout.PageHeight, layout.Scale)
	imp, err := api.Import(desc, types.POINTS)
	if err != nil {
		return part{}, fmt.Errorf("invalid image page description: %w", err)
	}

	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, []io.Reader{bytes.NewReader(data)}, imp, relaxedConfig()); err != nil {
		return part{}, fmt.Errorf("failed to place image: %w", err)
	}
	return part{item: it, pdf: out.Bytes(), pages: 1}, nil
}

func (a *Assembler) concat(parts []part) ([]byte, error) {
	if len(parts) == 1 {
		return parts[0].pdf, nil
	}
	readers := make([]io.ReadSeeker, 0, len(parts))
	for _, p := range parts {
		readers = append(readers, bytes.NewReader(p.pdf))
	}
	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("failed to merge documents: %w: %w", ErrSourceUnreadable, err)
	}
	return out.Bytes(), nil
}

// transcodePNG re-encodes formats the PDF writer cannot embed directly.
func transcodePNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
