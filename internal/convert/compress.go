package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrInvalidInput is returned for uploads that cannot be processed at all.
var ErrInvalidInput = errors.New("invalid input")

// Quality is a Ghostscript PDFSETTINGS preset.
type Quality string

const (
	QualityScreen   Quality = "screen"
	QualityEbook    Quality = "ebook"
	QualityPrinter  Quality = "printer"
	QualityPrepress Quality = "prepress"
	QualityDefault  Quality = "default"
)

var qualities = []Quality{QualityScreen, QualityEbook, QualityPrinter, QualityPrepress, QualityDefault}

// ParseQuality maps a user-supplied tier onto a Quality. Empty means ebook.
func ParseQuality(s string) (Quality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return QualityEbook, nil
	}
	if q := Quality(s); slices.Contains(qualities, q) {
		return q, nil
	}
	return "", fmt.Errorf("%w: unknown quality %q", ErrInvalidInput, s)
}

// Compression methods reported in CompressResult.
const (
	MethodGhostscript = "ghostscript"
	MethodOptimize    = "pdfcpu"
)

type CompressResult struct {
	PDF            []byte
	Method         string
	OriginalSize   int64
	CompressedSize int64
}

type CompressorConfig struct {
	// Ghostscript is the binary name or path (default "gs").
	Ghostscript string

	// TempDir is the parent of per-request workspaces.
	TempDir string

	Logger *slog.Logger
}

// Compressor shrinks PDFs with Ghostscript, or with pdfcpu's optimizer when
// Ghostscript is not installed.
type Compressor struct {
	gsPath  string
	tempDir string
	conf    *model.Configuration
	logger  *slog.Logger
}

func NewCompressor(cfg CompressorConfig) *Compressor {
	if cfg.Ghostscript == "" {
		cfg.Ghostscript = "gs"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	gsPath, err := exec.LookPath(cfg.Ghostscript)
	if err != nil {
		cfg.Logger.Warn("Ghostscript not found, falling back to pdfcpu optimize", "command", cfg.Ghostscript)
		gsPath = ""
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Compressor{
		gsPath:  gsPath,
		tempDir: cfg.TempDir,
		conf:    conf,
		logger:  cfg.Logger,
	}
}

// HasGhostscript reports whether the Ghostscript backend is in use
func (c *Compressor) HasGhostscript() bool { return c.gsPath != "" }

func (c *Compressor) Compress(ctx context.Context, pdf []byte, q Quality) (*CompressResult, error) {
	if _, err := api.PageCount(bytes.NewReader(pdf), c.conf); err != nil {
		return nil, fmt.Errorf("%w: not a readable PDF: %v", ErrInvalidInput, err)
	}

	var (
		out    []byte
		method string
		err    error
	)
	if c.gsPath != "" {
		out, err = c.ghostscript(ctx, pdf, q)
		method = MethodGhostscript
	} else {
		out, err = c.optimize(pdf)
		method = MethodOptimize
	}
	if err != nil {
		return nil, err
	}

	res := &CompressResult{
		PDF:            out,
		Method:         method,
		OriginalSize:   int64(len(pdf)),
		CompressedSize: int64(len(out)),
	}
	c.logger.Info("Compressed PDF",
		"method", method,
		"quality", q,
		"from", humanize.IBytes(uint64(res.OriginalSize)),
		"to", humanize.IBytes(uint64(res.CompressedSize)))
	return res, nil
}

func (c *Compressor) ghostscript(ctx context.Context, pdf []byte, q Quality) ([]byte, error) {
	ws, err := NewWorkspace(c.tempDir)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	in, err := ws.WriteFile("input.pdf", pdf)
	if err != nil {
		return nil, err
	}
	out := ws.Path("compressed.pdf")

	args := []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=/" + string(q),
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-sOutputFile=" + out,
		in,
	}
	cmd := exec.CommandContext(ctx, c.gsPath, args...)
	if _, err := cmd.Output(); err != nil {
		if e := new(exec.ExitError); errors.As(err, &e) {
			return nil, fmt.Errorf("ghostscript failed: %s: %s", e.Error(), bytes.TrimSpace(e.Stderr))
		}
		return nil, fmt.Errorf("ghostscript failed: %w", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed reading ghostscript output: %w", err)
	}
	return data, nil
}

func (c *Compressor) optimize(pdf []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(pdf), &buf, c.conf); err != nil {
		return nil, fmt.Errorf("failed to optimize PDF: %w", err)
	}
	return buf.Bytes(), nil
}
