package run

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Mmx233/PatchSync/client"
	"github.com/Mmx233/PatchSync/config"
	"github.com/Mmx233/PatchSync/metrics"
	"github.com/rs/zerolog"
)

const metricsShutdownTimeout = 5 * time.Second

// startClient loads the configuration, starts a client and, when configured,
// the metrics endpoint. The returned function stops both.
func startClient(ctx context.Context, logger zerolog.Logger, opts ...client.Option) (*client.Client, func(), error) {
	logger.Debug().Str("config", configFile).Msg("loading configuration")
	cfg, err := config.LoadClientConfig(configFile)
	if err != nil {
		return nil, nil, err
	}

	var (
		m   *metrics.Metrics
		srv *http.Server
	)
	if cfg.Metrics.Listen != "" {
		m = metrics.New()
		opts = append(opts, client.WithMetrics(m))

		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("listen", cfg.Metrics.Listen).Msg("metrics server stopped")
			}
		}()
		logger.Info().Str("listen", cfg.Metrics.Listen).Msg("serving metrics")
	}

	c, err := client.New(cfg, opts...)
	if err != nil {
		if srv != nil {
			_ = srv.Close()
		}
		return nil, nil, err
	}
	c.Start(ctx)

	cleanup := func() {
		_ = c.Stop()
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}
	}
	return c, cleanup, nil
}
