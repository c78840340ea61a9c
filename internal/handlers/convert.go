package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rarepdftool/pdftools/internal/convert"
)

// Compress shrinks the uploaded "file" using the requested quality tier.
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	if err := h.parseUpload(w, r, h.opts.MaxUploadBytes); err != nil {
		h.writeFailure(w, "Compression failed", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	quality, err := convert.ParseQuality(r.FormValue("quality"))
	if err != nil {
		h.writeFailure(w, "Compression failed", err)
		return
	}
	file, err := formFile(r, "file")
	if err != nil {
		h.writeFailure(w, "Compression failed", err)
		return
	}

	res, err := h.opts.Compressor.Compress(r.Context(), file.Data, quality)
	if err != nil {
		h.writeFailure(w, "Compression failed", err)
		return
	}

	w.Header().Set("X-Original-Size", strconv.FormatInt(res.OriginalSize, 10))
	w.Header().Set("X-Compressed-Size", strconv.FormatInt(res.CompressedSize, 10))
	w.Header().Set("X-Compression-Method", res.Method)
	h.writeAttachment(w, "compressed.pdf", "application/pdf", res.PDF)
}

func (h *Handler) PDFToPNG(w http.ResponseWriter, r *http.Request) {
	h.rasterize(w, r, convert.FormatPNG)
}

func (h *Handler) PDFToJPG(w http.ResponseWriter, r *http.Request) {
	h.rasterize(w, r, convert.FormatJPEG)
}

func (h *Handler) rasterize(w http.ResponseWriter, r *http.Request, format convert.Format) {
	if err := h.parseUpload(w, r, h.opts.MaxUploadBytes); err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, err := formFile(r, "file")
	if err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}

	pages, err := h.opts.Rasterizer.Rasterize(r.Context(), file.Data, format)
	if err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}

	var buf bytes.Buffer
	if err := convert.ZipPages(&buf, pages); err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}
	h.writeAttachment(w, fmt.Sprintf("pdf-to-%s.zip", format.Ext()), "application/zip", buf.Bytes())
}

// ImagesToPDF builds a PDF from the uploaded "files", one image per page.
func (h *Handler) ImagesToPDF(w http.ResponseWriter, r *http.Request) {
	h.imagesToPDF(w, r, h.opts.DefaultMargin, fmt.Sprintf("images_%d.pdf", time.Now().UnixMilli()))
}

func (h *Handler) JPGToPDF(w http.ResponseWriter, r *http.Request) {
	h.imagesToPDF(w, r, 0, "jpg-to-pdf.pdf")
}

func (h *Handler) PNGToPDF(w http.ResponseWriter, r *http.Request) {
	h.imagesToPDF(w, r, 0, "png-to-pdf.pdf")
}

func (h *Handler) imagesToPDF(w http.ResponseWriter, r *http.Request, defaultMargin float64, filename string) {
	if err := h.parseUpload(w, r, h.opts.MaxUploadBytes); err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	margin, err := h.parseMargin(r.FormValue("margin"), defaultMargin)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	files, err := formFiles(r, "files")
	if err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}

	res, err := convert.ImagesToPDF(r.Context(), h.opts.Assembler, files, margin)
	if err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}
	w.Header().Set("X-Page-Count", strconv.Itoa(res.PageCount))
	h.writeAttachment(w, filename, "application/pdf", res.PDF)
}

// ImageConvert re-encodes the uploaded "file" into "format".
func (h *Handler) ImageConvert(w http.ResponseWriter, r *http.Request) {
	if err := h.parseUpload(w, r, h.opts.MaxUploadBytes); err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	format, err := convert.ParseFormat(r.FormValue("format"))
	if err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}
	converter := h.opts.Images
	if v := r.FormValue("max_width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, "max_width must be a non-negative integer", http.StatusBadRequest)
			return
		}
		converter.MaxWidth = n
	}
	file, err := formFile(r, "file")
	if err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}

	out, err := converter.Convert(file.Data, format)
	if err != nil {
		h.writeFailure(w, "Conversion failed", err)
		return
	}
	h.writeAttachment(w, "converted."+format.Ext(), format.MIMEType(), out)
}
