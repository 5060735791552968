package domain

import "context"

// Fetcher downloads the raw document bytes for a print request
type Fetcher interface {
	Fetch(ctx context.Context, url string, cookies []Cookie) (Document, error)
}

// Cropper rewrites every page's crop box to its content bounds
type Cropper interface {
	Crop(ctx context.Context, doc Document) (*CroppedDocument, error)
}

// Rasterizer turns a cropped PDF into one bitmap per page
type Rasterizer interface {
	// Rasterize renders every page at dpi on both axes, in page order.
	// Native resources are released before it returns.
	Rasterize(ctx context.Context, doc Document, dpi int) ([]RasterPage, error)
}

// PageCrop records what the crop calculator did to one page
type PageCrop struct {
	PageNumber int
	Bounds     PageContentBounds
	Original   Rect
	Cropped    Rect
	Modified   bool
}

// CroppedDocument is a Document whose page crop boxes have been narrowed
type CroppedDocument struct {
	Document Document
	Pages    []PageCrop
}
