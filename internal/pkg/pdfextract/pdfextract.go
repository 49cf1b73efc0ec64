package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnreadable marks a structurally broken document: not a PDF,
	// corrupted, encrypted, or without readable pages.
	ErrUnreadable = errors.New("document is not a readable PDF")

	// ErrNoText marks a PDF that parsed fine but carries no extractable
	// text, e.g. a scanned image. Callers word their message differently
	// for this case, so it is not folded into ErrUnreadable.
	ErrNoText = errors.New("document contains no extractable text")
)

// ExtractText reads the whole of r and returns the per-page text joined by
// newlines. The underlying parser panics on some malformed files, so the
// whole walk runs under a recover that reports ErrUnreadable.
func ExtractText(r io.Reader) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read document failed: %w", err)
	}
	if len(b) == 0 {
		return "", ErrUnreadable
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if pdfReader.NumPage() == 0 {
		return "", ErrUnreadable
	}

	var sb strings.Builder
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrUnreadable, i, err)
		}
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}

	out := sb.String()
	if strings.TrimSpace(out) == "" {
		return "", ErrNoText
	}
	return out, nil
}
