package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rarepdftool/pdftools/internal/assemble"
	"github.com/rarepdftool/pdftools/internal/config"
	"github.com/rarepdftool/pdftools/internal/convert"
	"github.com/rarepdftool/pdftools/internal/handlers"
	"github.com/rarepdftool/pdftools/internal/merge"
	"github.com/rarepdftool/pdftools/internal/render"
	"github.com/rarepdftool/pdftools/internal/storage"
	"github.com/rarepdftool/pdftools/internal/thumbnail"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the pdftools HTTP API.

Merge sessions live in memory. Files are added, reordered and removed
through /api/sessions, and POST /api/sessions/{id}/merge returns the
assembled PDF. Stateless conversions are served under /api as well.

Idle sessions are torn down after session.ttl.`,
		Example: `  # Start server on default port 5050
  pdftools serve

  # Start server on custom port with JSON logs
  pdftools serve --port 3000 --log-format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			handler := newHandler(cfg, root.logger)
			store := handler.Store()

			janitorCtx, stopJanitor := context.WithCancel(cmd.Context())
			defer stopJanitor()
			go store.RunJanitor(janitorCtx, cfg.Session.TTL, janitorInterval(cfg.Session.TTL))

			addr := ":" + cfg.Server.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("pdftools API available",
					"addr", addr,
					"url", "http://localhost"+addr,
					"renderer", render.Available())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				err := server.Shutdown(shutdownCtx)
				n := store.CloseAll()
				slog.Info("Sessions closed", "count", n)
				if err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				store.CloseAll()
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "5050", "Port to listen on")

	return cmd
}

func newHandler(cfg *config.Config, logger *slog.Logger) *handlers.Handler {
	thumbs := thumbnail.New(thumbnail.Config{
		Scale:       cfg.Thumbnail.Scale,
		JPEGQuality: cfg.Thumbnail.JPEGQuality,
		Workers:     cfg.Thumbnail.Workers,
		Logger:      logger,
	})

	return handlers.New(handlers.Options{
		Store: storage.New(),
		Session: merge.Config{
			MaxTotalBytes: int64(cfg.Merge.MaxTotalBytes),
			Thumbnails:    thumbs,
			Logger:        logger,
		},
		Assembler: assemble.New(assemble.Config{Logger: logger}),
		Compressor: convert.NewCompressor(convert.CompressorConfig{
			Ghostscript: cfg.Convert.Ghostscript,
			TempDir:     cfg.Server.UploadDir,
			Logger:      logger,
		}),
		Rasterizer: convert.NewRasterizer(convert.RasterizerConfig{
			DPI:    cfg.Convert.DPI,
			Logger: logger,
		}),
		DefaultMargin:  cfg.Merge.DefaultMargin,
		MaxMargin:      cfg.Merge.MaxMargin,
		MaxPageWidth:   cfg.Merge.MaxPageWidth,
		MaxUploadBytes: int64(cfg.Convert.MaxUploadBytes),
		Logger:         logger,
	})
}

// janitorInterval checks for idle sessions a few times per ttl.
func janitorInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Second), 5*time.Minute)
}
