// Package extract turns uploaded payloads into plain UTF-8 text.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/utils"
)

// PageSource is an opened paginated document. Pages are numbered from 1.
type PageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

// PDFOpener opens a PDF payload.
type PDFOpener func(payload []byte) (PageSource, error)

type Result struct {
	Text         string
	Pages        int
	SkippedPages []int
}

type Extractor struct {
	openPDF PDFOpener
	logger  *logrus.Logger
}

func New(logger *logrus.Logger) *Extractor {
	return NewWithOpener(OpenPDF, logger)
}

func NewWithOpener(open PDFOpener, logger *logrus.Logger) *Extractor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Extractor{openPDF: open, logger: logger}
}

// Extract reads payload once according to its declared type.
func (e *Extractor) Extract(payload []byte, typ models.DocumentType) (*Result, error) {
	const op = "Extractor.Extract"

	switch typ {
	case models.DocumentTypePlainText:
		if !utf8.Valid(payload) {
			return nil, utils.E(utils.CodeInvalidArgument, op, "text file is not valid UTF-8", utils.ErrEncoding)
		}
		return &Result{Text: string(payload)}, nil

	case models.DocumentTypePDF:
		return e.extractPDF(payload)

	default:
		return nil, utils.E(utils.CodeUnsupportedType, op, "only .txt and .pdf documents are supported", utils.ErrUnsupportedType)
	}
}

func (e *Extractor) extractPDF(payload []byte) (*Result, error) {
	const op = "Extractor.extractPDF"

	src, err := e.openPDF(payload)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "pdf cannot be opened", fmt.Errorf("%w: %w", utils.ErrUnreadableDocument, err))
	}

	res := &Result{Pages: src.NumPage()}
	parts := make([]string, 0, res.Pages)
	for n := 1; n <= res.Pages; n++ {
		text, err := pageText(src, n)
		if err != nil {
			e.logger.WithFields(logrus.Fields{"page": n, "pages": res.Pages}).WithError(err).Warn("skipping unreadable pdf page")
			res.SkippedPages = append(res.SkippedPages, n)
			continue
		}
		parts = append(parts, text)
	}
	res.Text = strings.Join(parts, "\n")
	return res, nil
}

// pageText isolates parser panics to the page that caused them.
func pageText(src PageSource, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()
	return src.PageText(n)
}

// OpenPDF opens payload with the pure Go pdf reader.
func OpenPDF(payload []byte) (src PageSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("pdf reader: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, err
	}
	return pdfPages{r: r}, nil
}

type pdfPages struct {
	r *pdf.Reader
}

func (p pdfPages) NumPage() int { return p.r.NumPage() }

func (p pdfPages) PageText(n int) (string, error) {
	page := p.r.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d is missing", n)
	}
	return page.GetPlainText(nil)
}
