package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gaiazov/PrintService/cmd/pdf-printer/ui"
	"github.com/gaiazov/PrintService/internal/app"
	"github.com/gaiazov/PrintService/internal/config"
	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/observability"
	"github.com/gaiazov/PrintService/internal/pipeline"
	"github.com/gaiazov/PrintService/internal/raster"
)

var (
	printCookies  []string
	printPrinter  string
	printCropMode string
)

var printCmd = &cobra.Command{
	Use:   "print <url|file>",
	Short: "Print a PDF from a URL or a local file",
	Example: `  pdf-printer print https://shop.example.com/receipts/42.pdf --cookie session=abc
  pdf-printer print ./label.pdf --crop-mode tight`,
	Args: cobra.ExactArgs(1),
	RunE: runPrint,
}

func init() {
	printCmd.Flags().StringArrayVar(&printCookies, "cookie", nil, "cookie sent with the download, as key=value (repeatable)")
	printCmd.Flags().StringVarP(&printPrinter, "printer", "p", "", "printer name (overrides config)")
	printCmd.Flags().StringVar(&printCropMode, "crop-mode", "", "crop mode: bottom or tight (overrides config)")
	rootCmd.AddCommand(printCmd)
}

func runPrint(cmd *cobra.Command, args []string) error {
	cfg := loadedCfg
	if printPrinter != "" {
		cfg.Printer.Name = printPrinter
	}
	if printCropMode != "" {
		cfg.Crop.Mode = printCropMode
	}

	cookies, err := parseCookies(printCookies)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, cliLogger(cfg), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	ui.Section("Print")
	ui.Info("Printer: %s (%s, %d dpi)", cfg.Printer.Name, cfg.Printer.Driver, cfg.Printer.DPI)

	source := args[0]
	res, err := runWithProgress(func(eventCh chan<- domain.StreamEvent) (*pipeline.Result, error) {
		if isURL(source) {
			ui.Info("Document: %s", source)
			return a.Service.Print(ctx, domain.PrintRequest{URL: source, Cookies: cookies}, eventCh)
		}

		ui.Info("File: %s", source)
		doc, err := raster.NewValidator(a.Logger).ReadPDF(source)
		if err != nil {
			return nil, err
		}
		return a.Service.PrintDocument(ctx, "", doc, eventCh)
	})

	return report(res, err)
}

// runWithProgress drains pipeline events into a spinner while the document
// is prepared and a progress bar while pages print.
func runWithProgress(run func(eventCh chan<- domain.StreamEvent) (*pipeline.Result, error)) (*pipeline.Result, error) {
	eventCh := make(chan domain.StreamEvent, 256)

	type outcome struct {
		res *pipeline.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := run(eventCh)
		close(eventCh)
		done <- outcome{res, err}
	}()

	spin := ui.NewSpinner("Preparing document...")
	spin.Start()
	spinning := true
	stopSpin := func() {
		if spinning {
			spin.Stop()
			spinning = false
		}
	}

	var bar *ui.ProgressBar
	for event := range eventCh {
		switch event.Type {
		case domain.EventDocumentLoaded:
			spin.UpdateMessage(fmt.Sprintf("Cropping and rasterizing %d pages...", event.TotalPages))
		case domain.EventPagePrinting:
			stopSpin()
			if bar == nil {
				bar = ui.NewProgressBar(int64(event.TotalPages), "Printing")
			}
			bar.Describe(fmt.Sprintf("Printing page %d (%v)", event.PageNumber, event.Payload))
		case domain.EventPagePrinted:
			if bar != nil {
				bar.Set(int64(event.PageNumber))
			}
		case domain.EventComplete:
			if bar != nil {
				bar.Finish()
			}
		case domain.EventError:
			stopSpin()
		default:
			if ui.Verbose() {
				stopSpin()
				ui.Info("%s page %d/%d: %v", event.Type, event.PageNumber, event.TotalPages, event.Payload)
			}
		}
	}
	stopSpin()

	o := <-done
	return o.res, o.err
}

func report(res *pipeline.Result, err error) error {
	if res != nil && len(res.Crops) > 0 {
		rows := make([][]string, 0, len(res.Crops))
		for _, pc := range res.Crops {
			rows = append(rows, []string{
				fmt.Sprintf("%d", pc.PageNumber),
				pc.Original.String(),
				pc.Cropped.String(),
				fmt.Sprintf("%t", pc.Modified),
			})
		}
		ui.Newline()
		ui.Table([]string{"Page", "Original", "Cropped", "Modified"}, rows)
		ui.Newline()
	}

	outcome := pipeline.Outcome(res, err)
	if err != nil {
		ui.Error("%s", outcome.Message)
		return err
	}

	ui.Success("%s in %s", outcome.Message, ui.FormatDuration(res.Duration))
	return nil
}

func parseCookies(values []string) ([]domain.Cookie, error) {
	cookies := make([]domain.Cookie, 0, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid cookie %q, expected key=value", v)
		}
		cookies = append(cookies, domain.Cookie{Key: strings.TrimSpace(key), Value: value})
	}
	return cookies, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// cliLogger keeps the terminal quiet unless --verbose is set.
func cliLogger(cfg *config.Config) *observability.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: cfg.Observability.ServiceName,
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, stopping after the current page...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
