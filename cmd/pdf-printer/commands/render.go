package commands

import (
	"github.com/spf13/cobra"

	"github.com/gaiazov/PrintService/cmd/pdf-printer/ui"
	"github.com/gaiazov/PrintService/internal/app"
	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/pipeline"
	"github.com/gaiazov/PrintService/internal/printer/spool"
	"github.com/gaiazov/PrintService/internal/raster"
)

var (
	renderOut      string
	renderCropMode string
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Crop and rasterize a local PDF into PNG files instead of printing",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "out", "directory for the rendered pages")
	renderCmd.Flags().StringVar(&renderCropMode, "crop-mode", "", "crop mode: bottom or tight (overrides config)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := loadedCfg
	if renderCropMode != "" {
		cfg.Crop.Mode = renderCropMode
	}
	logger := cliLogger(cfg)

	device := spool.New(cfg.Printer.Name, renderOut, cfg.Printer.DPI, logger)
	if err := device.Check(cmd.Context()); err != nil {
		return err
	}

	a, err := app.New(cfg, logger, device)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	ui.Section("Render")
	ui.Info("File: %s", args[0])
	ui.Info("Output: %s (%d dpi)", renderOut, cfg.Printer.DPI)

	res, err := runWithProgress(func(eventCh chan<- domain.StreamEvent) (*pipeline.Result, error) {
		doc, err := raster.NewValidator(a.Logger).ReadPDF(args[0])
		if err != nil {
			return nil, err
		}
		return a.Service.PrintDocument(ctx, "render", doc, eventCh)
	})
	if err := report(res, err); err != nil {
		return err
	}

	for _, f := range device.Files() {
		ui.Info("Wrote %s", f)
	}
	return nil
}
