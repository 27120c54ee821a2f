// Package tlscert supplies the certificate for the preview server when it
// runs over HTTPS.
package tlscert

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Mode selects where certificates come from.
type Mode string

const (
	// ModeFile serves a certificate and key from disk, reloading them when
	// either file changes.
	ModeFile Mode = "file"
	// ModeAuto generates a self-signed certificate under Dir on first use.
	ModeAuto Mode = "auto"
)

// MinVersion is the lowest TLS version the server accepts.
const MinVersion = tls.VersionTLS13

// Config describes a certificate source.
type Config struct {
	Mode Mode

	CertFile string
	KeyFile  string

	Dir   string
	Hosts []string
}

// Server holds the TLS configuration handed to http.Server.
type Server struct {
	config      *tls.Config
	description string
}

// New prepares certificates for the given mode.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Mode {
	case ModeFile:
		return newFileServer(cfg, logger)
	case ModeAuto:
		return newSelfSignedServer(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported TLS mode %q (valid modes: file, auto)", cfg.Mode)
	}
}

// TLSConfig returns the configuration for http.Server.TLSConfig.
func (s *Server) TLSConfig() *tls.Config {
	return s.config
}

// Description names the certificate source for startup logs.
func (s *Server) Description() string {
	return s.description
}

func newFileServer(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("tls mode file requires a certificate and a key file")
	}
	if err := checkKeyPermissions(cfg.KeyFile); err != nil {
		return nil, err
	}

	r := &keyPairReloader{certFile: cfg.CertFile, keyFile: cfg.KeyFile, logger: logger}
	if _, err := r.certificate(); err != nil {
		return nil, err
	}

	return &Server{
		config: &tls.Config{
			MinVersion: MinVersion,
			GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
				return r.certificate()
			},
		},
		description: fmt.Sprintf("file (cert=%s, key=%s)", cfg.CertFile, cfg.KeyFile),
	}, nil
}

// keyPairReloader caches a key pair and reloads it when either file's
// modification time moves.
type keyPairReloader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger

	mu      sync.Mutex
	cert    *tls.Certificate
	certMod time.Time
	keyMod  time.Time
}

func (r *keyPairReloader) certificate() (*tls.Certificate, error) {
	certMod, err := modTime(r.certFile)
	if err != nil {
		return nil, fmt.Errorf("invalid certificate file: %w", err)
	}
	keyMod, err := modTime(r.keyFile)
	if err != nil {
		return nil, fmt.Errorf("invalid key file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cert != nil && certMod.Equal(r.certMod) && keyMod.Equal(r.keyMod) {
		return r.cert, nil
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		if r.cert != nil {
			r.logger.Error("failed to reload certificate, keeping previous one",
				slog.String("cert_file", r.certFile),
				slog.String("error", err.Error()))
			return r.cert, nil
		}
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	if r.cert != nil {
		r.logger.Info("certificate reloaded", slog.String("cert_file", r.certFile))
	}
	r.cert = &cert
	r.certMod = certMod
	r.keyMod = keyMod
	return r.cert, nil
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	if info.IsDir() {
		return time.Time{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return time.Time{}, fmt.Errorf("%s is empty", path)
	}
	return info.ModTime(), nil
}

func checkKeyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("invalid key file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return fmt.Errorf("key file %s has permissions %o, want 0600 or 0400", path, mode)
	}
	return nil
}
