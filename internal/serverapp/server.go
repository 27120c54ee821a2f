package serverapp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"opencrud-gen/internal/config"
	"opencrud-gen/internal/logging"
	"opencrud-gen/internal/tlscert"
)

func tlsEnabled(cfg *config.Config) bool {
	return cfg.Server.TLSMode != "" && cfg.Server.TLSMode != "off"
}

func buildServer(cfg *config.Config, logger *logging.Logger, handler http.Handler, serverAddr string) (*http.Server, error) {
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	if !tlsEnabled(cfg) {
		return srv, nil
	}

	tlsServer, err := tlscert.New(tlscert.Config{
		Mode:     tlscert.Mode(cfg.Server.TLSMode),
		CertFile: cfg.Server.TLSCertFile,
		KeyFile:  cfg.Server.TLSKeyFile,
		Dir:      cfg.Server.TLSAutoCertDir,
	}, logger.Component("tls"))
	if err != nil {
		return nil, err
	}
	srv.TLSConfig = tlsServer.TLSConfig()

	logger.Info("TLS enabled",
		slog.String("mode", cfg.Server.TLSMode),
		slog.String("cert_source", tlsServer.Description()))

	return srv, nil
}

// startServer listens on srv.Addr and serves in a goroutine. The returned
// channel receives at most one error.
func startServer(cfg *config.Config, logger *logging.Logger, srv *http.Server) (chan error, error) {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	secure := tlsEnabled(cfg)
	protocol := "http"
	if secure {
		protocol = "https"
	}
	logAttrs := []any{
		slog.String("protocol", protocol),
		slog.String("address", ln.Addr().String()),
		slog.String("graphql_endpoint", graphqlPath),
		slog.String("sdl_endpoint", sdlPath),
		slog.String("health_endpoint", healthPath),
		slog.Bool("graphiql", cfg.Server.GraphiQLEnabled),
	}
	if cfg.Observability.MetricsEnabled {
		logAttrs = append(logAttrs, slog.String("metrics_endpoint", metricsPath))
	}
	logger.Info("server starting", logAttrs...)

	serverErrors := make(chan error, 1)
	go func() {
		var err error
		if secure {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()
	return serverErrors, nil
}
