// Package pdf is the capability facade over PDF parsing: per-page text,
// document metadata, table detection, and a rasterize+OCR fallback for pages
// without native text. Byte-level parsing is delegated to the pdf reader and
// pdfcpu; OCR is a capability the caller injects.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	geekpdf "github.com/Geek0x0/pdf"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/PadsterH2012/extractor/internal/types"
)

// DefaultIdentifyCharCeiling bounds FirstNPagesText output for
// identification prompts.
const DefaultIdentifyCharCeiling = 5000

// minNativeTextChars is the threshold below which a page is considered
// image-only and routed to the OCR fallback.
const minNativeTextChars = 20

// OCRClient recognizes text in a rendered page image. Implementations come
// from the provider layer; a nil client makes OCR unavailable.
type OCRClient interface {
	RecognizePage(ctx context.Context, image []byte, pageNum int) (text string, confidence float64, err error)
}

// Rasterizer renders one page of a PDF file to a PNG image.
type Rasterizer interface {
	RenderPage(ctx context.Context, pdfPath string, pageNum int) ([]byte, error)
}

// Meta is the document information dictionary. Missing fields are empty
// strings, never errors.
type Meta struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Subject   string `json:"subject"`
	Keywords  string `json:"keywords"`
	PageCount int    `json:"page_count"`
}

// PageText is the text of one page with its OCR provenance.
type PageText struct {
	Text           string
	OCRUsed        bool
	OCRConfidence  float64 // [0,1], only meaningful when OCRUsed
	OCRUnavailable bool    // page had no native text and no OCR path
}

// Options configures an opened document.
type Options struct {
	OCR        OCRClient  // nil disables the OCR fallback
	Rasterizer Rasterizer // nil selects the poppler rasterizer
}

// Handle is an opened document. Not safe for concurrent use of the same
// page; callers shard work by page.
type Handle struct {
	reader    *geekpdf.Reader
	pageCount int
	tmpPath   string
	ocr       OCRClient
	raster    Rasterizer
}

// Open parses a document blob. Fails with pdf_unreadable on structural
// corruption, pdf_encrypted for password-protected inputs, and pdf_empty for
// zero-page documents.
func Open(ctx context.Context, blob []byte, opts Options) (*Handle, error) {
	reader, err := geekpdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		if errors.Is(err, geekpdf.ErrEncrypted) {
			return nil, types.NewError(types.KindPDFEncrypted, "open", err)
		}
		return nil, types.NewError(types.KindPDFUnreadable, "open", err)
	}

	// The rasterizer needs a file path, and pdfcpu cross-checks the page
	// count the same way the scan ingester does.
	tmp, err := os.CreateTemp("", "extractor-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	pageCount, err := pdfcpu.PageCount(tmp, nil)
	tmp.Close()
	if err != nil {
		// The primary reader already parsed the document; fall back to
		// its page count rather than failing the open.
		pageCount = reader.NumPage()
	}
	if pageCount <= 0 {
		pageCount = reader.NumPage()
	}
	if pageCount <= 0 {
		os.Remove(tmp.Name())
		return nil, types.Errorf(types.KindPDFEmpty, "open", "document has no pages")
	}

	raster := opts.Rasterizer
	if raster == nil {
		raster = &PopplerRasterizer{}
	}

	return &Handle{
		reader:    reader,
		pageCount: pageCount,
		tmpPath:   tmp.Name(),
		ocr:       opts.OCR,
		raster:    raster,
	}, nil
}

// Close releases the handle's temp file.
func (h *Handle) Close() error {
	if h.tmpPath != "" {
		err := os.Remove(h.tmpPath)
		h.tmpPath = ""
		return err
	}
	return nil
}

// PageCount returns the number of pages.
func (h *Handle) PageCount() int {
	return h.pageCount
}

// Metadata returns the document information dictionary.
func (h *Handle) Metadata() Meta {
	m := Meta{PageCount: h.pageCount}
	meta, err := h.reader.GetMetadata()
	if err != nil {
		return m
	}
	m.Title = meta.Title
	m.Author = meta.Author
	m.Subject = meta.Subject
	m.Keywords = strings.Join(meta.Keywords, " ")
	return m
}

// PageText returns the text of page pageNum (1-based): native text when the
// page has any, otherwise the rasterize+OCR fallback. When OCR is needed but
// unavailable the result carries OCRUnavailable and empty text rather than
// an error.
func (h *Handle) PageText(ctx context.Context, pageNum int) (PageText, error) {
	if pageNum < 1 || pageNum > h.pageCount {
		return PageText{}, fmt.Errorf("page %d out of range [1,%d]", pageNum, h.pageCount)
	}

	native, err := h.nativePageText(ctx, pageNum)
	if err == nil && !NeedsOCR(native) {
		return PageText{Text: native}, nil
	}

	if h.ocr == nil {
		return PageText{Text: native, OCRUnavailable: true}, nil
	}

	image, rerr := h.raster.RenderPage(ctx, h.tmpPath, pageNum)
	if rerr != nil {
		return PageText{Text: native, OCRUnavailable: true}, nil
	}
	text, confidence, oerr := h.ocr.RecognizePage(ctx, image, pageNum)
	if oerr != nil {
		return PageText{Text: native, OCRUnavailable: true}, nil
	}
	return PageText{Text: text, OCRUsed: true, OCRConfidence: confidence}, nil
}

// nativePageText extracts embedded text for a page.
func (h *Handle) nativePageText(ctx context.Context, pageNum int) (string, error) {
	page := h.reader.Page(pageNum)
	text, err := page.GetPlainText(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract page %d text: %w", pageNum, err)
	}
	return text, nil
}

// PageTables detects tables on a page. An empty list is not an error.
func (h *Handle) PageTables(ctx context.Context, pageNum int) ([]types.Table, error) {
	pt, err := h.PageText(ctx, pageNum)
	if err != nil {
		return nil, err
	}
	return DetectTables(pt.Text, pageNum), nil
}

// FirstNPagesText concatenates the first n page texts, bounded to charCeiling
// characters (DefaultIdentifyCharCeiling when <= 0). The second return
// signals truncation.
func (h *Handle) FirstNPagesText(ctx context.Context, n, charCeiling int) (string, bool, error) {
	if charCeiling <= 0 {
		charCeiling = DefaultIdentifyCharCeiling
	}
	if n > h.pageCount {
		n = h.pageCount
	}

	var b strings.Builder
	for i := 1; i <= n; i++ {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		pt, err := h.PageText(ctx, i)
		if err != nil {
			return "", false, err
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pt.Text)
		if b.Len() >= charCeiling {
			return b.String()[:charCeiling], true, nil
		}
	}
	return b.String(), false, nil
}

// NeedsOCR reports whether extracted native text is too thin to use,
// indicating an image-only page.
func NeedsOCR(text string) bool {
	return len(strings.TrimSpace(text)) < minNativeTextChars
}
