// Package raster renders PDF pages to bitmaps with MuPDF.
package raster

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/observability"
)

// Rasterizer implements domain.Rasterizer using go-fitz. Each page is
// rendered over its crop box at the same DPI on both axes.
type Rasterizer struct {
	validator *Validator
	logger    *observability.Logger
}

// NewRasterizer creates a new rasterizer instance
func NewRasterizer(logger *observability.Logger) *Rasterizer {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Rasterizer{
		validator: NewValidator(logger),
		logger:    logger.WithOperation("rasterize"),
	}
}

// Rasterize renders every page of doc, in order. The native document is
// opened from memory and closed before returning on every path.
func (r *Rasterizer) Rasterize(ctx context.Context, doc domain.Document, dpi int) ([]domain.RasterPage, error) {
	if err := r.validator.ValidateDPI(dpi); err != nil {
		return nil, err
	}
	if err := r.validator.ValidateDocument(doc); err != nil {
		return nil, err
	}

	fdoc, err := fitz.NewFromMemory(doc)
	if err != nil {
		return nil, domain.DocumentFormatError("failed to open PDF", err)
	}
	defer fdoc.Close()

	pageCount := fdoc.NumPage()
	if pageCount == 0 {
		return nil, domain.DocumentFormatError("PDF has no pages", nil)
	}

	log := r.logger.WithContext(ctx)
	pages := make([]domain.RasterPage, 0, pageCount)

	for i := 0; i < pageCount; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := fdoc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, domain.DocumentFormatError(fmt.Sprintf("failed to render page %d", i+1), err)
		}

		bounds := img.Bounds()
		page := domain.RasterPage{
			PageNumber:  i + 1,
			PixelWidth:  bounds.Dx(),
			PixelHeight: bounds.Dy(),
			DPIX:        dpi,
			DPIY:        dpi,
			Image:       img,
		}
		pages = append(pages, page)

		log.Debug().
			Int("page", page.PageNumber).
			Int("width_px", page.PixelWidth).
			Int("height_px", page.PixelHeight).
			Int("dpi", dpi).
			Msg("Page rasterized")
	}

	return pages, nil
}
