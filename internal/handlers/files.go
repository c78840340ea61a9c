package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rarepdftool/pdftools/internal/convert"
	"github.com/rarepdftool/pdftools/internal/merge"
	"github.com/rarepdftool/pdftools/internal/models"
)

// Multipart parts above this size are spooled to disk.
const maxMemory = 32 << 20

// parseUpload limits the request body to limit bytes and parses the form.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return fmt.Errorf("%w: request exceeds %s", merge.ErrInputRejected, humanize.IBytes(uint64(limit)))
		}
		return fmt.Errorf("%w: %v", convert.ErrInvalidInput, err)
	}
	return nil
}

// formFiles reads every file of field. The form must already be parsed.
func formFiles(r *http.Request, field string) ([]models.FileInput, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, fmt.Errorf("%w: no files in field %q", convert.ErrInvalidInput, field)
	}

	headers := r.MultipartForm.File[field]
	files := make([]models.FileInput, 0, len(headers))
	for _, fh := range headers {
		f, err := readFormFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// formFile reads the single file of field.
func formFile(r *http.Request, field string) (models.FileInput, error) {
	files, err := formFiles(r, field)
	if err != nil {
		return models.FileInput{}, err
	}
	return files[0], nil
}

func readFormFile(fh *multipart.FileHeader) (models.FileInput, error) {
	file, err := fh.Open()
	if err != nil {
		return models.FileInput{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.FileInput{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return models.FileInput{
		Name:     path.Base(fh.Filename),
		MIMEType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// errBlockedAddress is returned when a download would connect to a loopback,
// private or link-local address.
var errBlockedAddress = fmt.Errorf("%w: address not allowed", convert.ErrInvalidInput)

// publicHTTPClient refuses to connect to non-public addresses. The check runs
// on every dial, so redirects and DNS answers are covered.
func publicHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: 30 * time.Second, Control: rejectNonPublic}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{Timeout: timeout, Transport: transport}
}

func rejectNonPublic(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil || !publicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}
	return nil
}

func publicAddr(a netip.Addr) bool {
	a = a.Unmap()
	return a.IsGlobalUnicast() && !a.IsPrivate()
}

// downloadFile fetches rawURL, reading at most limit bytes.
func (h *Handler) downloadFile(ctx context.Context, rawURL string, limit int64) (models.FileInput, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.FileInput{}, fmt.Errorf("%w: invalid url %q", convert.ErrInvalidInput, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.FileInput{}, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := h.opts.HTTPClient.Do(req)
	if err != nil {
		return models.FileInput{}, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.FileInput{}, fmt.Errorf("%w: download failed: HTTP %d", convert.ErrInvalidInput, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return models.FileInput{}, fmt.Errorf("failed to read download: %w", err)
	}
	if int64(len(data)) > limit {
		return models.FileInput{}, fmt.Errorf("%w: download exceeds %s", merge.ErrInputRejected, humanize.IBytes(uint64(limit)))
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "download"
	}
	mimeType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return models.FileInput{Name: name, MIMEType: strings.TrimSpace(mimeType), Data: data}, nil
}
