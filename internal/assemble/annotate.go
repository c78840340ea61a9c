package assemble

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Page number placement, in points.
const (
	numberInsetX   = 40.0
	numberInsetY   = 20.0
	numberFontSize = 10.0
)

// pageNumberStamp is the pdfcpu text watermark description for one page
// number: Helvetica 10pt, gray 0.35, anchored at position and shifted by
// (dx, dy).
func pageNumberStamp(position string, dx, dy float64) string {
	return fmt.Sprintf("fontname:Helvetica, points:%d, position:%s, offset:%.2f %.2f, "+
		"scalefactor:1 abs, rotation:0, opacity:1, fillcolor:#595959",
		int(numberFontSize), position, dx, dy)
}

// stampFor places the number inset from the bottom-right corner. Pages too
// narrow for the inset get the number centered, and short pages get it
// lowered so it stays on the page.
func stampFor(d types.Dim) string {
	dy := min(numberInsetY, max(0, (d.Height-numberFontSize)/2))
	if d.Width < 2*numberInsetX {
		return pageNumberStamp("bc", 0, dy)
	}
	return pageNumberStamp("br", -numberInsetX, dy)
}

// NumberPages stamps 1..N on every page of pdf. Page count and order are
// unchanged.
func NumberPages(pdf []byte) ([]byte, error) {
	dims, err := api.PageDims(bytes.NewReader(pdf), relaxedConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to read page sizes: %w", err)
	}

	// Pages sharing a placement are stamped in one pass. %p always expands to
	// the absolute page number, so passes can be applied in any order.
	var order []string
	groups := make(map[string][]string)
	for i, d := range dims {
		desc := stampFor(d)
		if _, ok := groups[desc]; !ok {
			order = append(order, desc)
		}
		groups[desc] = append(groups[desc], strconv.Itoa(i+1))
	}

	out := pdf
	for _, desc := range order {
		wm, err := api.TextWatermark("%p", desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("invalid page number stamp: %w", err)
		}
		var buf bytes.Buffer
		if err := api.AddWatermarks(bytes.NewReader(out), &buf, groups[desc], wm, relaxedConfig()); err != nil {
			return nil, fmt.Errorf("failed to stamp page numbers: %w", err)
		}
		out = buf.Bytes()
	}
	return out, nil
}

// relaxedConfig returns a fresh configuration for every pdfcpu call; the api
// package writes the current command into the configuration it is given.
func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
