package schemarefresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"opencrud-gen/internal/datamodel"
	"opencrud-gen/internal/inferrer"
	"opencrud-gen/internal/introspection"
	"opencrud-gen/internal/naming"
)

// Source supplies the datamodel a snapshot is generated from.
type Source interface {
	// Fingerprint returns a digest of the source's current content. It
	// changes whenever Load would return a different datamodel.
	Fingerprint(ctx context.Context) (string, error)
	// Load returns the current datamodel.
	Load(ctx context.Context) (*datamodel.Model, error)
	// Describe names the source in logs.
	Describe() string
}

// Watcher is implemented by sources that can announce changes ahead of the
// next poll. The channel is closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// FileSource reads a datamodel SDL file.
type FileSource struct {
	Path string
}

// Fingerprint hashes the file content.
func (s *FileSource) Fingerprint(context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read datamodel: %w", err)
	}
	return digest(data), nil
}

// Load parses the file.
func (s *FileSource) Load(context.Context) (*datamodel.Model, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read datamodel: %w", err)
	}
	return datamodel.Parse(s.Path, string(data))
}

// Describe returns the file path.
func (s *FileSource) Describe() string {
	return "file:" + s.Path
}

// Watch signals writes to the file. The parent directory is watched so
// editors that save by replacing the file are noticed too.
func (s *FileSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	target, err := filepath.Abs(s.Path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if name, err := filepath.Abs(ev.Name); err != nil || name != target {
					continue
				}
				select {
				case changes <- struct{}{}:
				default:
				}
			case _, ok := <-w.Errors:
				// Polling still picks up whatever a dropped event missed.
				if !ok {
					return
				}
			}
		}
	}()
	return changes, nil
}

// DatabaseSource introspects a database catalog and infers a datamodel
// from it. The catalog read by Fingerprint is reused by the next Load.
type DatabaseSource struct {
	introspector introspection.Introspector
	schemaName   string
	naming       naming.Config
	logger       *slog.Logger

	mu     sync.Mutex
	cached *introspection.Schema
}

// NewDatabaseSource creates a source reading schemaName through
// introspector.
func NewDatabaseSource(introspector introspection.Introspector, schemaName string, cfg naming.Config, logger *slog.Logger) *DatabaseSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatabaseSource{
		introspector: introspector,
		schemaName:   schemaName,
		naming:       cfg,
		logger:       logger,
	}
}

// Fingerprint introspects the catalog and hashes its JSON encoding.
func (s *DatabaseSource) Fingerprint(ctx context.Context) (string, error) {
	schema, err := s.introspector.Introspect(ctx, s.schemaName)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to encode catalog: %w", err)
	}
	s.mu.Lock()
	s.cached = schema
	s.mu.Unlock()
	return digest(data), nil
}

// Load infers a datamodel from the catalog.
func (s *DatabaseSource) Load(ctx context.Context) (*datamodel.Model, error) {
	s.mu.Lock()
	schema := s.cached
	s.cached = nil
	s.mu.Unlock()

	if schema == nil {
		var err error
		if schema, err = s.introspector.Introspect(ctx, s.schemaName); err != nil {
			return nil, err
		}
	}
	return inferrer.Infer(schema, naming.New(s.naming, s.logger), inferrer.WithLogger(s.logger))
}

// Describe names the introspected schema.
func (s *DatabaseSource) Describe() string {
	if s.schemaName == "" {
		return "database"
	}
	return "database:" + s.schemaName
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
