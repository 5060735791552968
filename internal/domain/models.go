package domain

import (
	"fmt"
	"image"
	"time"
)

// DefaultDPI is the native resolution of 80mm thermal heads.
const DefaultDPI = 203

// Document is a raw PDF payload. It is never mutated once received.
type Document []byte

// Cookie is one key/value pair forwarded to the document fetcher.
type Cookie struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PrintRequest is the immutable per-request input of the pipeline.
type PrintRequest struct {
	ID      string   `json:"-"`
	URL     string   `json:"url"`
	Cookies []Cookie `json:"cookies"`
}

// PrintOutcome is the acknowledgment returned to the caller.
type PrintOutcome struct {
	Printed bool   `json:"printed"`
	Message string `json:"message"`
}

// PageContentBounds is the bounding box of every drawable mark on a page, in
// PDF user-space units.
type PageContentBounds struct {
	LLX, LLY, URX, URY float64
	Empty              bool
}

// Width returns the horizontal extent of the bounds.
func (b PageContentBounds) Width() float64 { return b.URX - b.LLX }

// Height returns the vertical extent of the bounds.
func (b PageContentBounds) Height() float64 { return b.URY - b.LLY }

// Degenerate reports bounds that cannot drive a crop.
func (b PageContentBounds) Degenerate() bool {
	return b.Empty || b.Width() <= 0 || b.Height() <= 0
}

// Rect is a PDF rectangle (lower-left, upper-right).
type Rect struct {
	LLX, LLY, URX, URY float64
}

func (r Rect) Width() float64  { return r.URX - r.LLX }
func (r Rect) Height() float64 { return r.URY - r.LLY }

func (r Rect) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", r.LLX, r.LLY, r.URX, r.URY)
}

// RasterPage is one page rendered at the pipeline DPI.
type RasterPage struct {
	PageNumber  int
	PixelWidth  int
	PixelHeight int
	DPIX        int
	DPIY        int
	Image       image.Image
}

// WidthInches returns the physical width of the page at its DPI.
func (p RasterPage) WidthInches() float64 {
	return float64(p.PixelWidth) / float64(p.DPIX)
}

// HeightInches returns the physical height of the page at its DPI.
func (p RasterPage) HeightInches() float64 {
	return float64(p.PixelHeight) / float64(p.DPIY)
}

// PaperSize is a custom media size in hundredths of an inch.
type PaperSize struct {
	WidthHundredths  int
	HeightHundredths int
}

// PaperSizeFor converts a raster page's pixel dimensions back into paper units
// using the pipeline DPI. Fractions of a hundredth are truncated.
func PaperSizeFor(page RasterPage, dpi int) PaperSize {
	widthInches := float64(page.PixelWidth) / float64(dpi)
	heightInches := float64(page.PixelHeight) / float64(dpi)
	return PaperSize{
		WidthHundredths:  int(widthInches * 100),
		HeightHundredths: int(heightInches * 100),
	}
}

// Inches returns the paper size in inches.
func (p PaperSize) Inches() (float64, float64) {
	return float64(p.WidthHundredths) / 100, float64(p.HeightHundredths) / 100
}

func (p PaperSize) String() string {
	return fmt.Sprintf("%dx%d", p.WidthHundredths, p.HeightHundredths)
}

// PrintJob exists only for the duration of one synchronous print call.
type PrintJob struct {
	Name  string
	Paper PaperSize
	Page  RasterPage
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart          EventType = "start"
	EventDocumentLoaded EventType = "document_loaded"
	EventPageCropped    EventType = "page_cropped"
	EventPageRasterized EventType = "page_rasterized"
	EventPagePrinting   EventType = "page_printing"
	EventPagePrinted    EventType = "page_printed"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	PageNumber int         `json:"page_number,omitempty"`
	TotalPages int         `json:"total_pages,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
