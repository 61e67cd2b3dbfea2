package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/h2non/filetype"
	lpdf "github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned when the payload does not carry a PDF signature
var ErrNotPDF = errors.New("not a PDF document")

// document is the outcome of text extraction
type document struct {
	text  string
	pages int
}

// extract pulls plain text and the page count out of raw PDF bytes.
// Parser panics on malformed input are turned into errors.
func extract(raw []byte) (doc document, err error) {
	if len(raw) == 0 || !filetype.Is(raw, "pdf") {
		return document{}, ErrNotPDF
	}

	defer func() {
		if r := recover(); r != nil {
			doc = document{}
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return document{}, err
	}

	doc.pages = reader.NumPage()

	var sb strings.Builder
	for i := 1; i <= doc.pages; i++ {
		text, ok := pageText(reader, i)
		if !ok || text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	}
	doc.text = sb.String()
	return doc, nil
}

// pageText extracts one page; a broken page is skipped rather than failing the document
func pageText(reader *lpdf.Reader, i int) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			text, ok = "", false
		}
	}()

	page := reader.Page(i)
	if page.V.IsNull() {
		return "", false
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return content, true
}
