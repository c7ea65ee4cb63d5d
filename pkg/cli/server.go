package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mchmarny/relscore/pkg/config"
	"github.com/mchmarny/relscore/pkg/data"
	"github.com/mchmarny/relscore/pkg/score"
	urfave "github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20

	serverAddressFlagName = "address"
)

func newServerCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local read-only JSON API over the relationship scores",
		Action:  cmdStartServer,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:  serverAddressFlagName,
				Usage: "Address on which the server will listen (optional, defaults to config)",
			},
		},
	}
}

func cmdStartServer(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	address := cfg.Config.Server.Address
	if v := cmd.String(serverAddressFlagName); v != "" {
		address = v
	}

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(cfg.Store, cfg.Config.Query),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("server started", "address", "http://"+address)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(store *data.Store, q config.Query) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /data/score", scoreAPIHandler(score.NewScorer(store)))
	mux.HandleFunc("GET /data/top", topAPIHandler(store, q.TopLimit))
	mux.HandleFunc("GET /data/suspicious", suspiciousAPIHandler(store, q.SuspiciousMinVolume, q.SuspiciousMinRisk))
	mux.HandleFunc("GET /data/metrics", metricsAPIHandler(store))

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return mux
}
