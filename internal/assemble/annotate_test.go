package assemble

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/rarepdftool/pdftools/internal/models"
	"github.com/rarepdftool/pdftools/internal/testutil"
)

var (
	paginationDo = regexp.MustCompile(`(?s)/Pagination\s*>>\s*BDC\s+q\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+cm\s+/\w+\s+gs\s+/(\w+)\s+Do`)
	stampText    = regexp.MustCompile(`\((\d+)\)\s*Tj`)
)

// stamp is one page number found on an output page.
type stamp struct {
	number int
	x, y   float64
	dim    types.Dim
}

// readStamps returns the page number stamp of every page, in page order.
func readStamps(t *testing.T, pdf []byte) []stamp {
	t.Helper()
	ctx, err := api.ReadAndValidate(bytes.NewReader(pdf), relaxedConfig())
	if err != nil {
		t.Fatalf("read context: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		t.Fatal(err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		t.Fatal(err)
	}

	stamps := make([]stamp, 0, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		d, _, inh, err := ctx.PageDict(i, false)
		if err != nil {
			t.Fatalf("page %d: %v", i, err)
		}
		content, err := ctx.PageContent(d, i)
		if err != nil {
			t.Fatalf("page %d content: %v", i, err)
		}
		m := paginationDo.FindAllSubmatch(content, -1)
		if len(m) != 1 {
			t.Fatalf("page %d: expected one page number, got %d", i, len(m))
		}

		xobjs, err := ctx.DereferenceDict(inh.Resources["XObject"])
		if err != nil || xobjs == nil {
			t.Fatalf("page %d: missing XObject resources: %v", i, err)
		}
		sd, _, err := ctx.DereferenceStreamDict(xobjs[string(m[0][7])])
		if err != nil || sd == nil {
			t.Fatalf("page %d: missing form %s: %v", i, m[0][7], err)
		}
		if err := sd.Decode(); err != nil {
			t.Fatalf("page %d: decode form: %v", i, err)
		}
		text := stampText.FindSubmatch(sd.Content)
		if text == nil {
			t.Fatalf("page %d: no text in form %q", i, sd.Content)
		}

		n, _ := strconv.Atoi(string(text[1]))
		x, _ := strconv.ParseFloat(string(m[0][5]), 64)
		y, _ := strconv.ParseFloat(string(m[0][6]), 64)
		stamps = append(stamps, stamp{number: n, x: x, y: y, dim: dims[i-1]})
	}
	return stamps
}

func TestPageNumbersAreContinuous(t *testing.T) {
	a := New(Config{})
	items := []models.Item{
		docItem("doc", testutil.PDF(t, 3)),
		imageItem("photo", "image/jpeg", testutil.JPEG(t, 800, 600)),
		imageItem("tiny", "image/png", testutil.PNG(t, 24, 12)),
		docItem("tail", testutil.PDF(t, 2)),
	}
	opts := DefaultOptions()
	opts.Margin = 0

	res, err := a.Run(context.Background(), items, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stamps := readStamps(t, res.PDF)
	if len(stamps) != 7 {
		t.Fatalf("Expected 7 stamped pages, got %d", len(stamps))
	}
	for i, s := range stamps {
		if s.number != i+1 {
			t.Errorf("Page %d: expected number %d, got %d", i+1, i+1, s.number)
		}
		if s.x < 0 || s.x >= s.dim.Width || s.y < 0 || s.y >= s.dim.Height {
			t.Errorf("Page %d: number at (%.2f, %.2f) is outside the %.2fx%.2f page", i+1, s.x, s.y, s.dim.Width, s.dim.Height)
		}
	}
}

func TestNumberPagesTwice(t *testing.T) {
	once, err := NumberPages(testutil.PDF(t, 2))
	if err != nil {
		t.Fatalf("NumberPages failed: %v", err)
	}
	twice, err := NumberPages(once)
	if err != nil {
		t.Fatalf("NumberPages on numbered PDF failed: %v", err)
	}
	if n := testutil.PageCount(t, twice); n != 2 {
		t.Errorf("Expected 2 pages, got %d", n)
	}
}

func TestStampFor(t *testing.T) {
	tests := []struct {
		name     string
		dim      types.Dim
		expected string
	}{
		{"a4", types.Dim{Width: 595, Height: 842}, pageNumberStamp("br", -40, 20)},
		{"narrow", types.Dim{Width: 30, Height: 842}, pageNumberStamp("bc", 0, 20)},
		{"short", types.Dim{Width: 595, Height: 20}, pageNumberStamp("br", -40, 5)},
		{"tiny", types.Dim{Width: 10, Height: 8}, pageNumberStamp("bc", 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stampFor(tt.dim); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
