package models

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rarepdftool/pdftools/internal/preview"
)

// DefaultMIMEType labels a file whose type could not be determined
const DefaultMIMEType = "application/octet-stream"

// Kind selects how an item is assembled into the output document
type Kind int

const (
	KindUnknown Kind = iota
	KindDocument
	KindRasterImage
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindRasterImage:
		return "image"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "document":
		*k = KindDocument
	case "image":
		*k = KindRasterImage
	default:
		*k = KindUnknown
	}
	return nil
}

// ClassifyMIME maps a MIME label onto a Kind
func ClassifyMIME(label string) Kind {
	base, _, err := mime.ParseMediaType(label)
	if err != nil {
		base = strings.ToLower(strings.TrimSpace(label))
	}
	switch {
	case base == "application/pdf":
		return KindDocument
	case strings.HasPrefix(base, "image/"):
		return KindRasterImage
	default:
		return KindUnknown
	}
}

// DetectMIME returns the declared label when present, otherwise guesses from
// the file extension and finally from the content itself.
func DetectMIME(name, declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != DefaultMIMEType {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	if len(data) > 0 {
		if sniffed := http.DetectContentType(data); sniffed != DefaultMIMEType {
			return sniffed
		}
	}
	return DefaultMIMEType
}

// FileInput is one file handed to the collector
type FileInput struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Item is a collected file tracked through the merge pipeline.
// Items are values: a change to an item produces a new copy inside a new
// ordering, so a slice obtained from a session never changes underneath
// the caller.
type Item struct {
	ID        string
	Name      string
	MIMEType  string
	Kind      Kind
	Size      int64
	PageCount *int
	Preview   *preview.Handle
	Source    []byte
	AddedAt   time.Time
}

// HasPreview reports whether a live preview is attached
func (it Item) HasPreview() bool {
	return it.Preview != nil && !it.Preview.Released()
}

// MergeSession is the JSON view of a merge session
type MergeSession struct {
	ID           string     `json:"id"`
	Items        []ItemView `json:"items"`
	TotalSize    int64      `json:"total_size"`
	MaxTotalSize int64      `json:"max_total_size"`
	LivePreviews int        `json:"live_previews"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ItemView is the JSON view of an item
type ItemView struct {
	ID         string    `json:"id"`
	Position   int       `json:"position"`
	Name       string    `json:"name"`
	MIMEType   string    `json:"mime_type"`
	Kind       Kind      `json:"kind"`
	Size       int64     `json:"size"`
	PageCount  *int      `json:"page_count,omitempty"`
	PreviewURL string    `json:"preview_url,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}
