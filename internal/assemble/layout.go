package assemble

import "math"

// Layout places one raster image on its own page. All values are in points.
type Layout struct {
	ContentWidth  float64
	ContentHeight float64
	Scale         float64
	PageWidth     float64
	PageHeight    float64
	Margin        float64
}

// ImageLayout fits an image of w×h pixels into a page no wider than
// maxWidth+2*margin. Images narrower than maxWidth keep their natural size;
// wider ones are scaled down uniformly.
func ImageLayout(w, h int, maxWidth, margin float64) Layout {
	margin = math.Max(margin, 0)
	width := float64(w)
	height := float64(h)

	contentWidth := math.Min(maxWidth, width)
	scale := 1.0
	if width > 0 {
		scale = contentWidth / width
	}
	contentHeight := height * scale

	return Layout{
		ContentWidth:  contentWidth,
		ContentHeight: contentHeight,
		Scale:         scale,
		PageWidth:     contentWidth + 2*margin,
		PageHeight:    contentHeight + 2*margin,
		Margin:        margin,
	}
}
