package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"hello-server/internal/events"
	"hello-server/internal/logger"
	"hello-server/internal/metrics"
	"hello-server/internal/threadpool"
)

// ErrNotListening は Listen 前の操作を表す
var ErrNotListening = errors.New("server is not listening")

const maxAcceptDelay = time.Second

// Executor はジョブを受け付けるもの（*threadpool.Pool）
type Executor interface {
	Submit(job threadpool.Job) error
}

// Option は Server の任意設定
type Option func(*Server)

// WithLogger はロガーを指定する
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics は接続メトリクスの記録先を指定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithEvents はイベントバスを指定する
func WithEvents(bus *events.Bus) Option {
	return func(s *Server) { s.bus = bus }
}

// Server は接続を順番に受け付けてプールに処理させる
type Server struct {
	cfg     Config
	pool    Executor
	handler *Handler

	log     *logger.Logger
	metrics *metrics.Metrics
	bus     *events.Bus

	mu       sync.Mutex
	listener net.Listener
}

// New はサーバーを作成する
func New(cfg Config, pool Executor, opts ...Option) *Server {
	s := &Server{
		cfg:  cfg,
		pool: pool,
		log:  logger.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Default
	}
	s.handler = NewHandler(cfg, s.log, s.metrics, s.bus)
	return s
}

// Handler は接続処理に使うハンドラを返す
func (s *Server) Handler() *Handler {
	return s.handler
}

// Listen はアドレスにバインドする
func (s *Server) Listen() error {
	lc := net.ListenConfig{}
	if s.cfg.ReuseAddr {
		lc.Control = reuseAddrControl
	}

	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Address(), err)
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("server", "Started listening on %s.", ln.Addr())
	return nil
}

// Addr はバインド済みのアドレスを返す。Listen 前は nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve は接続を受け付けてジョブとしてプールに投入する
// MaxRequests 件を受け付けるか ctx がキャンセルされると nil を返す
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	var delay time.Duration
	accepted := 0
	for s.cfg.MaxRequests == 0 || accepted < s.cfg.MaxRequests {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			// net/http と同様に一時的な失敗は待ってから再試行する
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(delay*2, maxAcceptDelay)
			}
			s.log.Warn("server", "Accept failed: %v; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		accepted++

		remote := conn.RemoteAddr().String()
		s.log.Info("server", "Connection established! (%s)", remote)
		s.bus.Publish(events.NewConnectionAcceptedEvent(remote))

		if err := s.pool.Submit(func() {
			s.handler.ServeConn(conn)
		}); err != nil {
			_ = conn.Close()
			return fmt.Errorf("dispatch connection %s: %w", remote, err)
		}
	}

	s.log.Info("server", "Accepted %d connections; stop accepting.", accepted)
	return nil
}

// Close はリスナーを閉じる。処理中の接続には影響しない
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	if ln == nil {
		return nil
	}
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close listener: %w", err)
	}
	return nil
}
