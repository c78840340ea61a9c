package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/rarepdftool/pdftools/internal/assemble"
	"github.com/rarepdftool/pdftools/internal/models"
	"github.com/rarepdftool/pdftools/internal/render"
	"github.com/rarepdftool/pdftools/internal/testutil"
)

func TestWorkspaceCleanup(t *testing.T) {
	parent := t.TempDir()
	ws, err := NewWorkspace(parent)
	if err != nil {
		t.Fatalf("NewWorkspace failed: %v", err)
	}
	p, err := ws.WriteFile("../escape.pdf", []byte("data"))
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if want := ws.Path("escape.pdf"); p != want {
		t.Errorf("Expected path %s, got %s", want, p)
	}

	dir := ws.Dir()
	if err := ws.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("Expected workspace removed, stat returned %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Errorf("Expected second Close to succeed, got %v", err)
	}

	entries, _ := os.ReadDir(parent)
	if len(entries) != 0 {
		t.Errorf("Expected empty upload dir, found %d entries", len(entries))
	}
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		input    string
		expected Quality
		wantErr  bool
	}{
		{"", QualityEbook, false},
		{"screen", QualityScreen, false},
		{" Printer ", QualityPrinter, false},
		{"prepress", QualityPrepress, false},
		{"default", QualityDefault, false},
		{"maximum", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q, err := ParseQuality(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("Expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil || q != tt.expected {
				t.Errorf("Expected %s, got %s (err %v)", tt.expected, q, err)
			}
		})
	}
}

func TestCompressFallsBackToOptimize(t *testing.T) {
	c := NewCompressor(CompressorConfig{Ghostscript: "pdftools-missing-ghostscript", TempDir: t.TempDir()})
	if c.HasGhostscript() {
		t.Fatal("Expected no ghostscript")
	}

	res, err := c.Compress(context.Background(), testutil.PDF(t, 2), QualityEbook)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if res.Method != MethodOptimize {
		t.Errorf("Expected method %s, got %s", MethodOptimize, res.Method)
	}
	if n := testutil.PageCount(t, res.PDF); n != 2 {
		t.Errorf("Expected 2 pages, got %d", n)
	}
	if res.CompressedSize != int64(len(res.PDF)) {
		t.Errorf("Expected compressed size %d, got %d", len(res.PDF), res.CompressedSize)
	}
}

func TestCompressRejectsGarbage(t *testing.T) {
	c := NewCompressor(CompressorConfig{Ghostscript: "pdftools-missing-ghostscript"})
	_, err := c.Compress(context.Background(), []byte("hello"), QualityScreen)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

type fakeDoc struct {
	pages  int
	opened *atomic.Int32
	closed *atomic.Int32
	fail   int
}

func (d fakeDoc) NumPage() int { return d.pages }

func (d fakeDoc) ImageDPI(page int, dpi float64) (image.Image, error) {
	if d.fail > 0 && page == d.fail-1 {
		return nil, errors.New("bad page")
	}
	// Width encodes the page number so the order can be checked.
	return testutil.Image(page+1, int(dpi/100), color.RGBA{A: 255}), nil
}

func (d fakeDoc) Close() error {
	d.closed.Add(1)
	return nil
}

func fakeOpener(pages, fail int) (render.Opener, *atomic.Int32, *atomic.Int32) {
	opened, closed := new(atomic.Int32), new(atomic.Int32)
	return func([]byte) (render.Document, error) {
		opened.Add(1)
		return fakeDoc{pages: pages, opened: opened, closed: closed, fail: fail}, nil
	}, opened, closed
}

func TestRasterize(t *testing.T) {
	tests := []struct {
		format Format
		decode func(io.Reader) (image.Image, error)
	}{
		{FormatPNG, png.Decode},
		{FormatJPEG, jpeg.Decode},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			open, opened, closed := fakeOpener(5, 0)
			r := NewRasterizer(RasterizerConfig{Open: open, Workers: 2})

			pages, err := r.Rasterize(context.Background(), []byte("%PDF"), tt.format)
			if err != nil {
				t.Fatalf("Rasterize failed: %v", err)
			}
			if len(pages) != 5 {
				t.Fatalf("Expected 5 pages, got %d", len(pages))
			}
			for i, p := range pages {
				if want := fmt.Sprintf("page_%d.%s", i+1, tt.format.Ext()); p.Name != want {
					t.Errorf("Expected name %s, got %s", want, p.Name)
				}
				img, err := tt.decode(bytes.NewReader(p.Data))
				if err != nil {
					t.Fatalf("Page %d does not decode: %v", i+1, err)
				}
				if img.Bounds().Dx() != i+1 || img.Bounds().Dy() != 2 {
					t.Errorf("Page %d: expected %dx2 at 200 dpi, got %v", i+1, i+1, img.Bounds().Size())
				}
			}
			if opened.Load() != closed.Load() {
				t.Errorf("Expected every document closed, opened %d closed %d", opened.Load(), closed.Load())
			}
		})
	}
}

func TestRasterizeFailures(t *testing.T) {
	t.Run("page fails", func(t *testing.T) {
		open, _, _ := fakeOpener(3, 2)
		r := NewRasterizer(RasterizerConfig{Open: open})
		if _, err := r.Rasterize(context.Background(), nil, FormatPNG); err == nil {
			t.Error("Expected error")
		}
	})

	t.Run("no renderer", func(t *testing.T) {
		r := NewRasterizer(RasterizerConfig{Open: func([]byte) (render.Document, error) { return nil, render.ErrUnavailable }})
		if _, err := r.Rasterize(context.Background(), nil, FormatPNG); !errors.Is(err, render.ErrUnavailable) {
			t.Errorf("Expected render.ErrUnavailable, got %v", err)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		open, _, _ := fakeOpener(1, 0)
		r := NewRasterizer(RasterizerConfig{Open: open})
		if _, err := r.Rasterize(context.Background(), nil, FormatGIF); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestZipPages(t *testing.T) {
	pages := []Page{
		{Number: 1, Name: "page_1.png", Data: []byte("one")},
		{Number: 2, Name: "page_2.png", Data: []byte("two")},
	}
	var buf bytes.Buffer
	if err := ZipPages(&buf, pages); err != nil {
		t.Fatalf("ZipPages failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Invalid zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if f.Name == "page_2.png" && string(data) != "two" {
			t.Errorf("Expected content two, got %q", data)
		}
	}
	if !slices.Equal(names, []string{"page_1.png", "page_2.png"}) {
		t.Errorf("Unexpected entries %v", names)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"jpg": FormatJPEG, "JPEG": FormatJPEG, ".png": FormatPNG,
		"gif": FormatGIF, "bmp": FormatBMP, "tif": FormatTIFF, "tiff": FormatTIFF,
	}
	for input, expected := range tests {
		if got, err := ParseFormat(input); err != nil || got != expected {
			t.Errorf("ParseFormat(%q): expected %s, got %s (err %v)", input, expected, got, err)
		}
	}
	if _, err := ParseFormat("webp"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected webp output to be rejected, got %v", err)
	}
}

func TestImageConvert(t *testing.T) {
	src := testutil.PNG(t, 40, 30)
	tests := []struct {
		to     Format
		decode func(io.Reader) (image.Image, error)
	}{
		{FormatJPEG, jpeg.Decode},
		{FormatPNG, png.Decode},
		{FormatGIF, gif.Decode},
		{FormatBMP, bmp.Decode},
		{FormatTIFF, tiff.Decode},
	}

	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			out, err := ImageConverter{}.Convert(src, tt.to)
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			img, err := tt.decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("Output does not decode as %s: %v", tt.to, err)
			}
			if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
				t.Errorf("Expected 40x30, got %v", img.Bounds().Size())
			}
		})
	}
}

func TestImageConvertResize(t *testing.T) {
	out, err := ImageConverter{MaxWidth: 20}.Convert(testutil.JPEG(t, 80, 40), FormatPNG)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 20 || cfg.Height != 10 {
		t.Errorf("Expected 20x10, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestImageConvertFlattensAlpha(t *testing.T) {
	transparent := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, transparent); err != nil {
		t.Fatal(err)
	}
	out, err := ImageConverter{}.Convert(buf.Bytes(), FormatJPEG)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r < 0xf000 || g < 0xf000 || b < 0xf000 {
		t.Errorf("Expected transparent pixels to become white, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestImageConvertRejectsGarbage(t *testing.T) {
	if _, err := (ImageConverter{}).Convert([]byte("nope"), FormatPNG); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestImagesToPDF(t *testing.T) {
	a := assemble.New(assemble.Config{})
	files := []models.FileInput{
		{Name: "a.jpg", Data: testutil.JPEG(t, 50, 40)},
		{Name: "b.png", Data: testutil.PNG(t, 60, 30)},
	}

	res, err := ImagesToPDF(context.Background(), a, files, 0)
	if err != nil {
		t.Fatalf("ImagesToPDF failed: %v", err)
	}
	if n := testutil.PageCount(t, res.PDF); n != 2 {
		t.Errorf("Expected 2 pages, got %d", n)
	}

	_, err = ImagesToPDF(context.Background(), a, []models.FileInput{{Name: "x.pdf", Data: testutil.PDF(t, 1)}}, 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a PDF, got %v", err)
	}
	if _, err := ImagesToPDF(context.Background(), a, nil, 0); !errors.Is(err, assemble.ErrAssemblyEmpty) {
		t.Errorf("Expected ErrAssemblyEmpty, got %v", err)
	}
}
