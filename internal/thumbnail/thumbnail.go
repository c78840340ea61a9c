// Package thumbnail produces best-effort previews for merge items.
//
// Images preview as themselves. Documents get their first page rendered to a
// JPEG. A failure anywhere yields a NoPreview result; it is logged and
// otherwise ignored, because previews are cosmetic.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/rarepdftool/pdftools/internal/models"
	"github.com/rarepdftool/pdftools/internal/preview"
	"github.com/rarepdftool/pdftools/internal/render"
)

// Config configures a Generator.
type Config struct {
	// Scale is applied to the page's natural size (default 1.2).
	Scale float64

	// JPEGQuality of rendered previews (default 70).
	JPEGQuality int

	// Workers bounds concurrent document renders (default 4).
	Workers int

	// Open opens documents for rendering (default render.Open).
	Open render.Opener

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Scale <= 0 {
		c.Scale = 1.2
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 70
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

// Generator produces previews. It is safe for concurrent use.
type Generator struct {
	cfg    Config
	sem    chan struct{}
	pdfcfg *model.Configuration
	logger *slog.Logger
}

func New(cfg Config) *Generator {
	cfg.defaults()
	pdfcfg := model.NewDefaultConfiguration()
	pdfcfg.ValidationMode = model.ValidationRelaxed
	return &Generator{
		cfg:    cfg,
		sem:    make(chan struct{}, cfg.Workers),
		pdfcfg: pdfcfg,
		logger: cfg.Logger,
	}
}

// Submit starts preview generation for item and returns a channel that yields
// exactly one result. Results of different items arrive in no particular order.
func (g *Generator) Submit(ctx context.Context, item models.Item) <-chan preview.Result {
	ch := make(chan preview.Result, 1)
	go func() {
		defer close(ch)
		ch <- g.Generate(ctx, item)
	}()
	return ch
}

// Generate produces the preview for one item synchronously.
func (g *Generator) Generate(ctx context.Context, item models.Item) preview.Result {
	switch item.Kind {
	case models.KindRasterImage:
		h := preview.NewHandle(item.ID, item.MIMEType, item.Source, preview.OriginSource)
		return preview.Preview(item.ID, h, nil)
	case models.KindDocument:
		select {
		case g.sem <- struct{}{}:
			defer func() { <-g.sem }()
		case <-ctx.Done():
			return preview.NoPreview(item.ID, nil, ctx.Err())
		}
		res := g.documentPreview(item)
		if !res.OK() {
			g.logger.Debug("No preview for document", "item_id", item.ID, "name", item.Name, "reason", res.Reason)
		}
		return res
	default:
		return preview.NoPreview(item.ID, nil, fmt.Errorf("no preview for %s items", item.Kind))
	}
}

func (g *Generator) documentPreview(item models.Item) (res preview.Result) {
	// MuPDF runs through cgo; a panic there must not take the session down.
	defer func() {
		if r := recover(); r != nil {
			res = preview.NoPreview(item.ID, nil, fmt.Errorf("renderer panic: %v", r))
		}
	}()

	doc, err := g.cfg.Open(item.Source)
	if errors.Is(err, render.ErrUnavailable) {
		// Without a renderer the page count still comes from the PDF itself.
		n, perr := api.PageCount(bytes.NewReader(item.Source), g.pdfcfg)
		if perr != nil {
			return preview.NoPreview(item.ID, nil, perr)
		}
		return preview.NoPreview(item.ID, &n, err)
	}
	if err != nil {
		return preview.NoPreview(item.ID, nil, err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount < 1 {
		return preview.NoPreview(item.ID, nil, errors.New("document has no pages"))
	}

	img, err := doc.ImageDPI(0, render.PointsDPI*g.cfg.Scale)
	if err != nil {
		return preview.NoPreview(item.ID, nil, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: g.cfg.JPEGQuality}); err != nil {
		return preview.NoPreview(item.ID, nil, fmt.Errorf("failed to encode preview: %w", err))
	}

	h := preview.NewHandle(item.ID, "image/jpeg", buf.Bytes(), preview.OriginRendered)
	return preview.Preview(item.ID, h, &pageCount)
}
