package convert

import (
	"context"
	"fmt"

	"github.com/rarepdftool/pdftools/internal/assemble"
	"github.com/rarepdftool/pdftools/internal/idgen"
	"github.com/rarepdftool/pdftools/internal/models"
)

// ImagesToPDF places each image on its own page, in the order given, with no
// page numbers. PDFs are refused.
func ImagesToPDF(ctx context.Context, a *assemble.Assembler, files []models.FileInput, margin float64) (*assemble.Result, error) {
	if len(files) == 0 {
		return nil, assemble.ErrAssemblyEmpty
	}

	nextID := idgen.Sequence("image-")
	items := make([]models.Item, 0, len(files))
	for _, f := range files {
		label := models.DetectMIME(f.Name, f.MIMEType, f.Data)
		kind := models.ClassifyMIME(label)
		if kind == models.KindDocument {
			return nil, fmt.Errorf("%w: %s is not an image", ErrInvalidInput, f.Name)
		}
		items = append(items, models.Item{
			ID:       nextID(),
			Name:     f.Name,
			MIMEType: label,
			Kind:     kind,
			Size:     int64(len(f.Data)),
			Source:   f.Data,
		})
	}

	opts := assemble.DefaultOptions()
	opts.Margin = margin
	opts.PageNumbers = false
	return a.Run(ctx, items, opts)
}
