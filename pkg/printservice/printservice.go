// Package printservice is the library entry point for printing PDFs on a
// thermal printer.
package printservice

import (
	"context"
	"os"

	"github.com/gaiazov/PrintService/internal/app"
	"github.com/gaiazov/PrintService/internal/config"
	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/pipeline"
	"github.com/gaiazov/PrintService/internal/raster"
)

// Re-export types for the public API
type (
	Config      = config.Config
	Cookie      = domain.Cookie
	Outcome     = domain.PrintOutcome
	StreamEvent = domain.StreamEvent
	EventType   = domain.EventType
	Result      = pipeline.Result
)

// Event type constants
const (
	EventStart          = domain.EventStart
	EventDocumentLoaded = domain.EventDocumentLoaded
	EventPageCropped    = domain.EventPageCropped
	EventPageRasterized = domain.EventPageRasterized
	EventPagePrinting   = domain.EventPagePrinting
	EventPagePrinted    = domain.EventPagePrinted
	EventError          = domain.EventError
	EventComplete       = domain.EventComplete
)

// Client prints documents on the configured printer.
type Client struct {
	app *app.App
}

// NewClient loads configuration from CONFIG_PATH (optional), a .env file and
// the environment.
func NewClient() (*Client, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, domain.ConfigError("failed to load configuration", err)
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client from an explicit configuration.
func NewClientWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("configuration is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("invalid configuration", err)
	}

	a, err := app.New(cfg, nil, nil)
	if err != nil {
		return nil, err
	}
	return &Client{app: a}, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// Print downloads url with cookies and prints every page. It returns once the
// last page has been handed to the printer, or on the first failure.
func (c *Client) Print(ctx context.Context, url string, cookies []Cookie) (Outcome, error) {
	res, err := c.app.Service.Print(ctx, domain.PrintRequest{URL: url, Cookies: cookies}, nil)
	return pipeline.Outcome(res, err), err
}

// PrintFile prints a PDF from the local filesystem.
func (c *Client) PrintFile(ctx context.Context, path string) (Outcome, error) {
	doc, err := raster.NewValidator(c.app.Logger).ReadPDF(path)
	if err != nil {
		return pipeline.Outcome(nil, err), err
	}
	res, err := c.app.Service.PrintDocument(ctx, "", doc, nil)
	return pipeline.Outcome(res, err), err
}

// PrintStream prints url in the background and streams progress events. The
// channel is closed after the final complete or error event.
func (c *Client) PrintStream(ctx context.Context, url string, cookies []Cookie) <-chan StreamEvent {
	eventCh := make(chan StreamEvent, 256)

	go func() {
		defer close(eventCh)
		_, _ = c.app.Service.Print(ctx, domain.PrintRequest{URL: url, Cookies: cookies}, eventCh)
	}()

	return eventCh
}

// Check reports whether the printer is reachable.
func (c *Client) Check(ctx context.Context) error {
	return c.app.Service.Check(ctx)
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	return c.app.Close()
}
