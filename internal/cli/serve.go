package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/attack-lab/internal/handlers"
	"github.com/Brownie44l1/attack-lab/internal/logging"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	svc, art, err := openService()
	if err != nil {
		return err
	}
	defer art.Close()

	h := handlers.NewHandler(svc, cfg.Server.MaxUploadMB, cfg.Server.PreviewMaxSide)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h.Routes(cfg.Server.CORSOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.L().Info("server starting",
			"addr", srv.Addr,
			"images", cfg.Images.Root,
			"endpoints", []string{"/health", "/attacks", "/predict", "/predict/image", "/render", "/metrics"},
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logging.L().Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
