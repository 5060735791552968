// Package crop narrows every page's crop box to the content actually drawn on
// it, so a receipt-style page prints without trailing blank paper.
package crop

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/observability"
)

// Mode selects which crop box edges are moved.
type Mode string

const (
	// ModeBottom raises only the bottom edge, leaving a margin below the
	// content equal to its left margin.
	ModeBottom Mode = "bottom"
	// ModeTight additionally pulls the left, right and top edges onto the
	// content.
	ModeTight Mode = "tight"
)

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBottom, ModeTight:
		return Mode(s), nil
	case "":
		return ModeBottom, nil
	}
	return "", domain.ValidationError(fmt.Sprintf("unknown crop mode %q", s), nil)
}

var disableConfigDir sync.Once

// Calculator rewrites crop boxes using pdfcpu for object access.
type Calculator struct {
	mode   Mode
	conf   *model.Configuration
	logger *observability.Logger
}

// NewCalculator creates a crop calculator.
func NewCalculator(mode Mode, logger *observability.Logger) *Calculator {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if logger == nil {
		logger = observability.Nop()
	}
	if mode == "" {
		mode = ModeBottom
	}

	return &Calculator{
		mode:   mode,
		conf:   conf,
		logger: logger.WithOperation("crop"),
	}
}

// Crop computes content bounds for every page and writes the narrowed crop
// boxes back. When no page changes, the input bytes are returned as is.
func (c *Calculator) Crop(ctx context.Context, doc domain.Document) (*domain.CroppedDocument, error) {
	if len(doc) == 0 {
		return nil, domain.DocumentFormatError("document is empty", nil)
	}

	pdfCtx, err := api.ReadContext(bytes.NewReader(doc), c.conf)
	if err != nil {
		return nil, domain.DocumentFormatError("failed to parse PDF", err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, domain.DocumentFormatError("invalid PDF", err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return nil, domain.DocumentFormatError("failed to count pages", err)
	}

	log := c.logger.WithContext(ctx)
	pages := make([]domain.PageCrop, 0, pdfCtx.PageCount)
	modified := false

	for n := 1; n <= pdfCtx.PageCount; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pc, err := c.cropPage(pdfCtx, n)
		if err != nil {
			return nil, err
		}
		pages = append(pages, pc)
		modified = modified || pc.Modified

		log.Debug().
			Int("page", n).
			Str("bounds", fmt.Sprintf("%.2f %.2f %.2f %.2f", pc.Bounds.LLX, pc.Bounds.LLY, pc.Bounds.URX, pc.Bounds.URY)).
			Bool("empty", pc.Bounds.Empty).
			Str("original", pc.Original.String()).
			Str("cropped", pc.Cropped.String()).
			Msg("Page crop computed")
	}

	if !modified {
		return &domain.CroppedDocument{Document: doc, Pages: pages}, nil
	}

	var buf bytes.Buffer
	if err := api.WriteContext(pdfCtx, &buf); err != nil {
		return nil, domain.DocumentFormatError("failed to write cropped PDF", err)
	}

	return &domain.CroppedDocument{Document: buf.Bytes(), Pages: pages}, nil
}

func (c *Calculator) cropPage(pdfCtx *model.Context, n int) (domain.PageCrop, error) {
	pc := domain.PageCrop{PageNumber: n}

	pageDict, _, _, err := pdfCtx.PageDict(n, false)
	if err != nil {
		return pc, domain.DocumentFormatError(fmt.Sprintf("failed to read page %d", n), err)
	}
	if pageDict == nil {
		return pc, domain.DocumentFormatError(fmt.Sprintf("page %d not found", n), nil)
	}

	orig, ok := pageBox(pdfCtx, pageDict)
	if !ok {
		return pc, domain.DocumentFormatError(fmt.Sprintf("page %d has no media box", n), nil)
	}
	pc.Original = domain.Rect{LLX: orig.llx, LLY: orig.lly, URX: orig.urx, URY: orig.ury}

	content, err := pageContent(pdfCtx, pageDict)
	if err != nil {
		return pc, domain.DocumentFormatError(fmt.Sprintf("failed to decode content of page %d", n), err)
	}

	res := newPDFResources(pdfCtx, dictOf(pdfCtx, inherited(pdfCtx, pageDict, "Resources")))
	pc.Bounds, err = traceBounds(content, res)
	if err != nil {
		return pc, domain.DocumentFormatError(fmt.Sprintf("failed to scan content of page %d", n), err)
	}

	pc.Cropped, pc.Modified = computeCrop(c.mode, pc.Original, pc.Bounds)
	if pc.Modified {
		r := pc.Cropped
		pageDict["CropBox"] = types.NewRectangle(r.LLX, r.LLY, r.URX, r.URY).Array()
	}
	return pc, nil
}

// computeCrop applies the crop formula to one page. The bottom edge moves to
// lly - llx, clamped to [orig.LLY, lly] so content is never cut and the page
// never grows. Pages without usable bounds pass through.
func computeCrop(mode Mode, orig domain.Rect, b domain.PageContentBounds) (domain.Rect, bool) {
	if b.Degenerate() {
		return orig, false
	}

	out := orig
	if mode == ModeTight {
		out.LLX = math.Max(orig.LLX, b.LLX)
		out.URX = math.Min(orig.URX, b.URX)
		out.URY = math.Min(orig.URY, b.URY)
	}

	margin := b.LLX
	bottom := math.Min(b.LLY-margin, b.LLY)
	out.LLY = math.Max(bottom, orig.LLY)

	if out.LLX >= out.URX || out.LLY >= out.URY {
		return orig, false
	}
	return out, out != orig
}
