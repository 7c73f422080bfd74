// Package export writes the plain text of a summary into downloadable files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	WordFilename    = "ClipGenie_Summary.doc"
	WordContentType = "application/msword"
	PDFFilename     = "ClipGenie_Summary.pdf"
	PDFContentType  = "application/pdf"

	byteOrderMark = "\ufeff"
)

var (
	ErrNothingToExport = errors.New("nothing to export")
	ErrUnknownKind     = errors.New("unknown export kind")
)

type Kind string

const (
	KindWord Kind = "word"
	KindPDF  Kind = "pdf"
)

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func ParseKind(raw string) (Kind, error) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case KindWord, KindPDF:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}

func Export(kind Kind, text string) (File, error) {
	switch kind {
	case KindWord:
		data, err := Word(text)
		if err != nil {
			return File{}, err
		}
		return File{Name: WordFilename, ContentType: WordContentType, Data: data}, nil

	case KindPDF:
		data, err := PDF(text)
		if err != nil {
			return File{}, err
		}
		return File{Name: PDFFilename, ContentType: PDFContentType, Data: data}, nil

	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Word is the text prefixed with a UTF-8 byte order mark, which word
// processors open as a document.
func Word(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNothingToExport
	}

	return []byte(byteOrderMark + text), nil
}

// PDF lays the text out on A4 pages with the core fonts, so only cp1252
// characters survive.
func PDF(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNothingToExport
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("ClipGenie Summary", true)
	pdf.SetCreator("ClipGenie", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	translate := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "ClipGenie Summary", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	pdf.MultiCell(0, 6, translate(text), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	return buf.Bytes(), nil
}
