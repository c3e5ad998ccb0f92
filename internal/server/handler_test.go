package server

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hello-server/internal/logger"
	"hello-server/internal/metrics"
)

const (
	testHello    = "<h1>Hello!</h1>\n"
	testNotFound = "<h1>Oops!</h1>\n"
)

// writeSite は hello.html と 404.html を一時ディレクトリに作る
func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, helloFile), []byte(testHello), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, notFoundFile), []byte(testNotFound), 0o644))
	return dir
}

func quietLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError)
}

func testHandler(t *testing.T, m *metrics.Metrics) *Handler {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Root = writeSite(t)
	cfg.SleepDelay = 20 * time.Millisecond
	return NewHandler(cfg, quietLogger(), m, nil)
}

type readWriter struct {
	io.Reader
	io.Writer
}

func serve(t *testing.T, h *Handler, request string) (string, *Route, error) {
	t.Helper()
	out := &bytes.Buffer{}
	route, err := h.Serve(readWriter{strings.NewReader(request), out})
	return out.String(), route, err
}

func TestReadRequest(t *testing.T) {
	lines, err := ReadRequest(strings.NewReader("GET / HTTP/1.1\r\nHost: localhost\r\n\r\nignored body"))
	require.NoError(t, err)
	assert.Equal(t, []string{"GET / HTTP/1.1", "Host: localhost"}, lines)

	lines, err = ReadRequest(strings.NewReader("GET / HTTP/1.1\nUser-Agent: x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"GET / HTTP/1.1", "User-Agent: x"}, lines, "EOF ends the request")

	lines, err = ReadRequest(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestWriteResponse(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, WriteResponse(out, StatusOK, []byte("héllo")))
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 6\r\n\r\nhéllo", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteResponseError(t *testing.T) {
	err := WriteResponse(failingWriter{}, StatusOK, nil)
	assert.ErrorContains(t, err, "broken pipe")
}

func TestRoute(t *testing.T) {
	h := testHandler(t, nil)

	tests := []struct {
		line   string
		status string
		file   string
		delay  bool
	}{
		{"GET / HTTP/1.1", StatusOK, helloFile, false},
		{"GET /sleep HTTP/1.1", StatusOK, helloFile, true},
		{"GET /missing HTTP/1.1", StatusNotFound, notFoundFile, false},
		{"POST / HTTP/1.1", StatusNotFound, notFoundFile, false},
		{"GET / HTTP/1.0", StatusNotFound, notFoundFile, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			r := h.Route(tt.line)
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.file, r.File)
			assert.Equal(t, tt.delay, r.Delay > 0)
		})
	}
}

func TestServeHello(t *testing.T) {
	h := testHandler(t, nil)

	out, route, err := serve(t, h, "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")
	require.NoError(t, err)
	require.NotNil(t, route)
	assert.Equal(t, 200, route.Code)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 16\r\n\r\n"+testHello, out)
}

func TestServeSleep(t *testing.T) {
	h := testHandler(t, nil)

	start := time.Now()
	out, _, err := serve(t, h, "GET /sleep HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
}

func TestServeNotFound(t *testing.T) {
	h := testHandler(t, nil)

	out, route, err := serve(t, h, "GET /nope HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, 404, route.Code)
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 404 NOT FOUND"))
	assert.True(t, strings.HasSuffix(out, testNotFound))
}

func TestServeEmptyRequestWritesNothing(t *testing.T) {
	h := testHandler(t, nil)

	out, route, err := serve(t, h, "")
	require.NoError(t, err)
	assert.Nil(t, route)
	assert.Empty(t, out)

	out, route, err = serve(t, h, "\r\n")
	require.NoError(t, err)
	assert.Nil(t, route)
	assert.Empty(t, out)
}

func TestServeMissingFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = t.TempDir()
	h := NewHandler(cfg, quietLogger(), nil, nil)

	out, _, err := serve(t, h, "GET / HTTP/1.1\r\n\r\n")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, out)
}

func TestServeConnRecordsMetrics(t *testing.T) {
	m := metrics.New()
	h := testHandler(t, m)

	client, srv := net.Pipe()
	done := make(chan struct{})
	go func() {
		h.ServeConn(srv)
		close(done)
	}()

	_, err := client.Write([]byte("GET /unknown HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	resp, err := io.ReadAll(client)
	require.NoError(t, err)
	<-done

	assert.True(t, strings.HasPrefix(string(resp), "HTTP/1.1 404 NOT FOUND"))
	assert.Equal(t, uint64(1), m.NotFound())
	assert.Equal(t, uint64(1), m.Served())
}

func TestServeConnEmptyAndFailure(t *testing.T) {
	m := metrics.New()

	cfg := DefaultConfig()
	cfg.Root = t.TempDir() // no files: every non-empty request fails
	h := NewHandler(cfg, quietLogger(), m, nil)

	client, srv := net.Pipe()
	go func() {
		_ = client.Close()
	}()
	h.ServeConn(srv)

	client, srv = net.Pipe()
	go func() {
		_, _ = client.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
		_, _ = io.Copy(io.Discard, client)
	}()
	h.ServeConn(srv)

	assert.Equal(t, uint64(1), m.Empty())
	assert.Equal(t, uint64(1), m.Failed())
}
