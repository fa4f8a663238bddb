/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/api"
	"github.com/sony-level/wsimport/internal/metrics"
	"github.com/sony-level/wsimport/internal/workspace"
)

var (
	serveAddr     string
	shutdownGrace time.Duration
)

// staleStageAge is how old a leftover staging directory must be before serve removes it
const staleStageAge = time.Hour

// serveCmd exposes the engine over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the import API over HTTP",
	Long: `Serve the import operations over HTTP, with Prometheus metrics on /metrics.

Routes:
  POST   /assessments/{id}/source/branches
  POST   /assessments/{id}/source/clone
  POST   /assessments/{id}/source/upload-zip
  GET    /assessments/{id}/source/list
  DELETE /assessments/{id}/source/{name}
  POST   /assessments/{id}/context/upload
  GET    /assessments/{id}/context/files
  DELETE /assessments/{id}/context/{filename}
  GET    /assessments/{id}/check
  GET    /healthz
  GET    /metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prom := metrics.NewProm("wsimport")
		rt, err := newApp(cmd, prom)
		if err != nil {
			return err
		}
		defer rt.Close()

		if n, err := workspace.CleanupStale(rt.cfg.StagingDir, staleStageAge); err != nil {
			rt.logger.Warn("stale staging cleanup failed", zap.Error(err))
		} else if n > 0 {
			rt.logger.Info("removed stale staging directories", zap.Int("count", n))
		}

		addr := rt.cfg.ServeAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		maxUpload := rt.cfg.MaxArchiveSize
		if rt.cfg.MaxContextFileSize > maxUpload {
			maxUpload = rt.cfg.MaxContextFileSize
		}

		srv := api.New(rt.engine, api.Options{
			Logger:         rt.logger.Named("api"),
			Metrics:        prom,
			MetricsHandler: prom.Handler(),
			MaxUploadBytes: maxUpload,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, addr, shutdownGrace)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: serve.addr, 127.0.0.1:8088)")
	serveCmd.Flags().DurationVar(&shutdownGrace, "shutdown-grace", 15*time.Second, "Time allowed for in-flight requests on shutdown")
	rootCmd.AddCommand(serveCmd)
}

