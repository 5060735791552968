package raster

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/observability"
)

const (
	// MinDPI and MaxDPI bound the rendering resolution.
	MinDPI = 1
	MaxDPI = 2400

	largeDocumentBytes = 100 * 1024 * 1024
	headerWindow       = 1024
)

var pdfMagic = []byte("%PDF-")

// Validator provides input validation for documents handed to the rasterizer
type Validator struct {
	logger *observability.Logger
}

// NewValidator creates a new validator instance
func NewValidator(logger *observability.Logger) *Validator {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Validator{logger: logger}
}

// ValidateDocument checks that doc looks like a PDF. Leading garbage before
// the header is tolerated, as most readers do.
func (v *Validator) ValidateDocument(doc domain.Document) error {
	if len(doc) == 0 {
		return domain.DocumentFormatError("document is empty", nil)
	}

	window := doc
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	if !bytes.Contains(window, pdfMagic) {
		return domain.DocumentFormatError("document is not a PDF (missing %PDF- header)", nil)
	}

	if len(doc) > largeDocumentBytes {
		v.logger.Warn().
			Int("size_mb", len(doc)/(1024*1024)).
			Msg("PDF document is very large, processing may take a while")
	}

	return nil
}

// ValidateDPI validates the rendering resolution
func (v *Validator) ValidateDPI(dpi int) error {
	if dpi < MinDPI || dpi > MaxDPI {
		return domain.ValidationError(fmt.Sprintf("dpi must be between %d and %d, got %d", MinDPI, MaxDPI, dpi), nil)
	}
	return nil
}

// ValidatePDFPath validates that a file path is valid and points to a PDF
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	return nil
}

// ReadPDF validates path and returns the file contents as a Document.
func (v *Validator) ReadPDF(path string) (domain.Document, error) {
	if err := v.ValidatePDFPath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("cannot read file: %s", path), err)
	}

	if err := v.ValidateDocument(data); err != nil {
		return nil, err
	}
	return data, nil
}
