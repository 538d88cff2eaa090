package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thereceipt/escpos-driver/internal/api"
	"github.com/thereceipt/escpos-driver/internal/config"
	"github.com/thereceipt/escpos-driver/internal/dispatch"
	"github.com/thereceipt/escpos-driver/internal/escpos"
	"github.com/thereceipt/escpos-driver/internal/layout"
	"github.com/thereceipt/escpos-driver/internal/netinfo"
	"github.com/thereceipt/escpos-driver/internal/preview"
	"github.com/thereceipt/escpos-driver/internal/printer"
	"github.com/thereceipt/escpos-driver/internal/registry"
	"github.com/thereceipt/escpos-driver/internal/status"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the driver and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), appCfg)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", "", "listen address (default from listen_addr)")
	flags.String("serial-port", "", `serial fallback port, or "auto"`)
	_ = settings.BindPFlag(config.KeyListenAddr, flags.Lookup("listen"))
	_ = settings.BindPFlag(config.KeySerialPort, flags.Lookup("serial-port"))

	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	tracker := status.NewTracker()
	registryPath := config.ResolveRegistryPath(cfg.RegistryPath)
	devices := registry.New(registryPath, tracker)

	opener := printer.USBOpener{
		SerialPort: cfg.SerialPort,
		SerialBaud: cfg.SerialBaud,
		Printer:    escpos.Options{Columns: cfg.LineWidth, Dots: cfg.PrinterDots},
	}
	locator := printer.NewLocator(devices, printer.USBBus{}, opener, tracker)

	monitor := printer.NewMonitor(locator, cfg.HotplugInterval)
	monitor.Start()
	defer monitor.Stop()

	var addresses netinfo.Lookup = netinfo.NewPublic(cfg.AddressEchoURL, nil)
	if cfg.PublicAddress != "" {
		addresses = netinfo.Static(cfg.PublicAddress)
	}

	layoutOpts := layout.Options{Width: cfg.LineWidth}
	dispatcher := dispatch.New(locator, tracker, addresses, dispatch.Config{
		ReceiptWindow: cfg.ReceiptWindow,
		CashboxWindow: cfg.CashboxWindow,
		RetryBackoff:  cfg.RetryBackoff,
		HomepagePort:  cfg.PublicPort,
		Layout:        layoutOpts,
	})

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(dispatcher, devices, monitor, tracker, api.Options{
		Layout:  layoutOpts,
		Preview: preview.Options{Columns: cfg.LineWidth, Dots: cfg.PrinterDots},
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.ListenAddr).
			Str("registry", registryPath).
			Str("version", Version).
			Msg("starting escposd")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return errors.Wrap(err, "http server")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("dispatcher shutdown")
	}
	return nil
}
