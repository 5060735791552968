// Package app assembles a print service from configuration.
package app

import (
	"fmt"

	"github.com/gaiazov/PrintService/internal/config"
	"github.com/gaiazov/PrintService/internal/crop"
	"github.com/gaiazov/PrintService/internal/fetch"
	"github.com/gaiazov/PrintService/internal/lock"
	"github.com/gaiazov/PrintService/internal/observability"
	"github.com/gaiazov/PrintService/internal/pipeline"
	"github.com/gaiazov/PrintService/internal/printer"
	"github.com/gaiazov/PrintService/internal/printer/ipp"
	"github.com/gaiazov/PrintService/internal/printer/spool"
	"github.com/gaiazov/PrintService/internal/raster"
)

// App holds a wired service and the resources it owns.
type App struct {
	Service *pipeline.Service
	Device  printer.Device
	Locker  lock.Locker
	Logger  *observability.Logger
}

// NewLogger builds the service logger from configuration.
func NewLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
}

// New wires fetcher, cropper, rasterizer, device and locker. The device can
// be overridden, for example to spool a single render to a directory.
func New(cfg *config.Config, logger *observability.Logger, device printer.Device) (*App, error) {
	if logger == nil {
		logger = NewLogger(cfg)
	}

	mode, err := crop.ParseMode(cfg.Crop.Mode)
	if err != nil {
		return nil, err
	}

	if device == nil {
		device, err = NewDevice(cfg.Printer, logger)
		if err != nil {
			return nil, err
		}
	}

	locker, err := NewLocker(cfg.Lock, logger)
	if err != nil {
		return nil, err
	}

	retry := fetch.DefaultRetryConfig()
	retry.MaxRetries = cfg.Fetch.MaxRetries

	svc := pipeline.NewService(pipeline.Deps{
		Fetcher: fetch.New(fetch.Config{
			Timeout:   cfg.Fetch.Timeout,
			MaxBytes:  cfg.Fetch.MaxBytes,
			UserAgent: cfg.Fetch.UserAgent,
			Retry:     retry,
		}, logger),
		Cropper:    crop.NewCalculator(mode, logger),
		Rasterizer: raster.NewRasterizer(logger),
		Device:     device,
		Locker:     locker,
		DPI:        cfg.Printer.DPI,
		LockWait:   cfg.Lock.Wait,
		Logger:     logger,
	})

	return &App{Service: svc, Device: device, Locker: locker, Logger: logger}, nil
}

// Close releases the locker connection.
func (a *App) Close() error {
	return a.Locker.Close()
}

// NewDevice creates the configured printer device.
func NewDevice(cfg config.PrinterConfig, logger *observability.Logger) (printer.Device, error) {
	switch cfg.Driver {
	case "ipp":
		return ipp.New(ipp.Config{
			Printer:      cfg.Name,
			Host:         cfg.IPP.Host,
			Port:         cfg.IPP.Port,
			Username:     cfg.IPP.Username,
			Password:     cfg.IPP.Password,
			TLS:          cfg.IPP.TLS,
			DPI:          cfg.DPI,
			JobTimeout:   cfg.IPP.JobTimeout,
			PollInterval: cfg.IPP.PollInterval,
		}, logger), nil
	case "spool":
		return spool.New(cfg.Name, cfg.Spool.Dir, cfg.DPI, logger), nil
	}
	return nil, fmt.Errorf("unknown printer driver: %s", cfg.Driver)
}

// NewLocker creates the configured device locker.
func NewLocker(cfg config.LockConfig, logger *observability.Logger) (lock.Locker, error) {
	switch cfg.Driver {
	case "", "memory":
		return lock.NewMemoryLocker(), nil
	case "redis":
		l, err := lock.NewRedisLocker(lock.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.TTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create redis locker: %w", err)
		}
		return l, nil
	}
	return nil, fmt.Errorf("unknown lock driver: %s", cfg.Driver)
}
