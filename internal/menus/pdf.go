package menus

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// inspectPDF parses data as a PDF and returns its page count.
func inspectPDF(data []byte) (pages int, err error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, pdfMagic) {
		return 0, errors.New("missing PDF header")
	}
	// the parser panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			pages = 0
			err = fmt.Errorf("parse pdf: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	pages = reader.NumPage()
	if pages < 1 {
		return 0, errors.New("pdf has no pages")
	}
	return pages, nil
}
