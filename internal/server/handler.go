package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"hello-server/internal/events"
	"hello-server/internal/logger"
	"hello-server/internal/metrics"
)

const (
	helloFile    = "hello.html"
	notFoundFile = "404.html"
)

// Route は要求行に対する応答内容
type Route struct {
	Status string
	Code   int
	File   string
	Delay  time.Duration
}

// Handler は1接続分のリクエストを処理する
type Handler struct {
	root        string
	sleepDelay  time.Duration
	readTimeout time.Duration

	log     *logger.Logger
	metrics *metrics.Metrics
	bus     *events.Bus
}

// NewHandler はハンドラを作成する。log が nil なら logger.Default を使う
func NewHandler(cfg Config, log *logger.Logger, m *metrics.Metrics, bus *events.Bus) *Handler {
	if log == nil {
		log = logger.Default
	}
	return &Handler{
		root:        cfg.Root,
		sleepDelay:  cfg.SleepDelay,
		readTimeout: cfg.ReadTimeout,
		log:         log,
		metrics:     m,
		bus:         bus,
	}
}

// Route は要求行から応答を決める
func (h *Handler) Route(requestLine string) Route {
	switch requestLine {
	case "GET / HTTP/1.1":
		return Route{Status: StatusOK, Code: 200, File: helloFile}
	case "GET /sleep HTTP/1.1":
		return Route{Status: StatusOK, Code: 200, File: helloFile, Delay: h.sleepDelay}
	default:
		return Route{Status: StatusNotFound, Code: 404, File: notFoundFile}
	}
}

// Serve はリクエストを読み、応答を書く
// 空リクエストの場合は何も書かずに (nil Route, nil) を返す
func (h *Handler) Serve(rw io.ReadWriter) (*Route, error) {
	lines, err := ReadRequest(rw)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	route := h.Route(lines[0])
	if route.Delay > 0 {
		time.Sleep(route.Delay)
	}

	body, err := os.ReadFile(filepath.Join(h.root, route.File))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", route.File, err)
	}

	if err := WriteResponse(rw, route.Status, body); err != nil {
		return nil, err
	}
	return &route, nil
}

// ServeConn は接続を処理して閉じる。エラーはこの接続内で完結させる
func (h *Handler) ServeConn(conn net.Conn) {
	start := time.Now()
	remote := conn.RemoteAddr().String()
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			h.log.Debug("server", "close %s: %v", remote, err)
		}
	}()

	if h.readTimeout > 0 {
		_ = conn.SetReadDeadline(start.Add(h.readTimeout))
	}

	route, err := h.Serve(conn)
	switch {
	case err != nil:
		h.log.Error("server", "Connection %s failed: %v", remote, err)
		h.bus.Publish(events.NewConnectionFailedEvent(remote, err))
		if h.metrics != nil {
			h.metrics.RecordFailure(time.Since(start))
		}
	case route == nil:
		h.log.Info("server", "HTTP request is empty.")
		if h.metrics != nil {
			h.metrics.RecordEmpty(time.Since(start))
		}
	default:
		h.log.Debug("server", "%s -> %s", remote, route.Status)
		if h.metrics != nil {
			h.metrics.RecordResponse(route.Code, time.Since(start))
		}
	}
}
