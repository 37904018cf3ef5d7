package connector

import (
	"bytes"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	pdfMagic  = []byte("%PDF-")
	zipMagic  = []byte("PK\x03\x04")
	pdfcpuCfg sync.Once
)

// pdfSniffWindow is how far into the body the PDF header may appear. Some
// servers prepend whitespace or a BOM.
const pdfSniffWindow = 1024

// IsDownloadable reports whether an attachment MIME type is one the save
// pipeline fetches and uploads itself.
func IsDownloadable(mimeType string) bool {
	mt := strings.ToLower(mimeType)
	return strings.Contains(mt, "pdf") || strings.Contains(mt, "epub")
}

// CheckContent verifies that data looks like the file type announced by
// mimeType.
func (c *Client) CheckContent(url, mimeType string, data []byte) error {
	return checkContent(url, mimeType, data, c.validatePDF)
}

func checkContent(url, mimeType string, data []byte, validatePDF bool) error {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "pdf"):
		head := data
		if len(head) > pdfSniffWindow {
			head = head[:pdfSniffWindow]
		}
		if !bytes.Contains(head, pdfMagic) {
			return &ContentError{URL: url, MimeType: mimeType, Reason: "response is not a PDF"}
		}
		if validatePDF {
			return validatePDFPages(url, mimeType, data)
		}
	case strings.Contains(mt, "epub"):
		if !bytes.HasPrefix(data, zipMagic) {
			return &ContentError{URL: url, MimeType: mimeType, Reason: "response is not an EPUB"}
		}
	}
	return nil
}

func validatePDFPages(url, mimeType string, data []byte) error {
	pdfcpuCfg.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return &ContentError{URL: url, MimeType: mimeType, Reason: "unreadable PDF: " + err.Error()}
	}
	if pages < 1 {
		return &ContentError{URL: url, MimeType: mimeType, Reason: "PDF has no pages"}
	}
	return nil
}
