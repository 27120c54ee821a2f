package schemarefresh

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencrud-gen/internal/datamodel"
	"opencrud-gen/internal/logging"
)

const userDatamodel = `
type User {
  id: ID! @id
  email: String! @unique
}
`

const userPostDatamodel = `
type User {
  id: ID! @id
  email: String! @unique
  posts: [Post!]!
}

type Post {
  id: ID! @id
  title: String!
  author: User!
}
`

// memorySource serves an in-memory datamodel whose fingerprint is the
// source text itself.
type memorySource struct {
	mu      sync.Mutex
	text    string
	fpErr   error
	loadErr error
	loads   int
	calls   int
}

func (s *memorySource) set(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}

func (s *memorySource) Fingerprint(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fpErr != nil {
		return "", s.fpErr
	}
	return digest([]byte(s.text)), nil
}

func (s *memorySource) Load(context.Context) (*datamodel.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return datamodel.Parse("memory.graphql", s.text)
}

func (s *memorySource) Describe() string { return "memory" }

func testLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "debug", Format: "text", Output: buf})
}

func newTestManager(t *testing.T, src Source) (*Manager, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	m, err := NewManager(context.Background(), Config{
		Source:      src,
		Logger:      testLogger(&buf),
		MinInterval: time.Second,
		MaxInterval: 4 * time.Second,
	})
	require.NoError(t, err)
	return m, &buf
}

func TestNewManager_BuildsInitialSnapshot(t *testing.T) {
	src := &memorySource{text: userDatamodel}
	m, _ := newTestManager(t, src)

	snap := m.CurrentSnapshot()
	require.NotNil(t, snap)
	assert.Equal(t, digest([]byte(userDatamodel)), snap.Fingerprint)
	assert.Contains(t, snap.SDL, "type User")
	assert.Contains(t, snap.SDL, "createUser")
	assert.NotNil(t, snap.Schema.Type("UserWhereUniqueInput"))
	assert.NotNil(t, snap.GraphQL)
	assert.False(t, snap.BuiltAt.IsZero())
}

func TestNewManager_Errors(t *testing.T) {
	_, err := NewManager(context.Background(), Config{})
	require.Error(t, err)

	src := &memorySource{text: "type Broken { id: Nope! @id }"}
	_, err = NewManager(context.Background(), Config{Source: src, Logger: testLogger(&bytes.Buffer{})})
	require.Error(t, err)

	src = &memorySource{fpErr: errors.New("connection refused")}
	_, err = NewManager(context.Background(), Config{Source: src, Logger: testLogger(&bytes.Buffer{})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRefreshOnce(t *testing.T) {
	src := &memorySource{text: userDatamodel}
	m, buf := newTestManager(t, src)
	ctx := context.Background()
	first := m.CurrentSnapshot()

	t.Run("unchanged source backs off without rebuilding", func(t *testing.T) {
		next := m.refreshOnce(ctx, time.Second)
		assert.Equal(t, 1500*time.Millisecond, next)
		assert.Same(t, first, m.CurrentSnapshot())
		assert.Equal(t, 1, src.loads)
	})

	t.Run("changed source swaps snapshot", func(t *testing.T) {
		src.set(userPostDatamodel)
		next := m.refreshOnce(ctx, 3*time.Second)
		assert.Equal(t, time.Second, next)
		snap := m.CurrentSnapshot()
		assert.NotSame(t, first, snap)
		assert.Contains(t, snap.SDL, "type Post")
		assert.Contains(t, buf.String(), "rebuilding schema")
	})

	t.Run("failed rebuild keeps previous snapshot", func(t *testing.T) {
		before := m.CurrentSnapshot()
		src.set("type Post { id: ID! @id author: Ghost! }")
		next := m.refreshOnce(ctx, 3*time.Second)
		assert.Equal(t, time.Second, next)
		assert.Same(t, before, m.CurrentSnapshot())
		assert.Contains(t, buf.String(), "failed to load datamodel")
	})

	t.Run("fingerprint failure resets interval", func(t *testing.T) {
		before := m.CurrentSnapshot()
		src.mu.Lock()
		src.fpErr = errors.New("timeout")
		src.mu.Unlock()
		defer func() {
			src.mu.Lock()
			src.fpErr = nil
			src.mu.Unlock()
		}()
		assert.Equal(t, time.Second, m.refreshOnce(ctx, 4*time.Second))
		assert.Same(t, before, m.CurrentSnapshot())
	})
}

func TestRefreshNow_RebuildsUnchangedSource(t *testing.T) {
	src := &memorySource{text: userDatamodel}
	m, _ := newTestManager(t, src)
	first := m.CurrentSnapshot()

	require.NoError(t, m.RefreshNow(context.Background()))
	assert.NotSame(t, first, m.CurrentSnapshot())
	assert.Equal(t, first.Fingerprint, m.CurrentSnapshot().Fingerprint)
	assert.Equal(t, 2, src.loads)

	src.mu.Lock()
	src.loadErr = errors.New("boom")
	src.mu.Unlock()
	current := m.CurrentSnapshot()
	require.Error(t, m.RefreshNow(context.Background()))
	assert.Same(t, current, m.CurrentSnapshot())
}

func TestNextInterval(t *testing.T) {
	tests := []struct {
		current, want time.Duration
	}{
		{0, time.Second},
		{time.Second, 1500 * time.Millisecond},
		{2 * time.Second, 3 * time.Second},
		{3 * time.Second, 4 * time.Second},
		{4 * time.Second, 4 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextInterval(tt.current, time.Second, 4*time.Second), tt.current.String())
	}
}

func TestManager_Handler(t *testing.T) {
	src := &memorySource{text: userDatamodel}
	m, _ := newTestManager(t, src)
	h := m.Handler()

	query := func() string {
		body := strings.NewReader(`{"query":"{ __type(name: \"Post\") { name } }"}`)
		req := httptest.NewRequest(http.MethodPost, "/graphql", body)
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		return rr.Body.String()
	}

	assert.Contains(t, query(), `"__type": null`)

	src.set(userPostDatamodel)
	require.NoError(t, m.RefreshNow(context.Background()))
	assert.Contains(t, query(), `"name": "Post"`)
}

func TestManager_HandlerNotReady(t *testing.T) {
	m := &Manager{logger: slog.Default()}
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestManager_StartStops(t *testing.T) {
	src := &memorySource{text: userDatamodel}
	m, _ := newTestManager(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, m.Wait(waitCtx))
}
