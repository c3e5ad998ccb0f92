// Package main is the entry point for hello-server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"

	"hello-server/internal/api"
	"hello-server/internal/config"
	"hello-server/internal/events"
	"hello-server/internal/logger"
	"hello-server/internal/metrics"
	"hello-server/internal/server"
	"hello-server/internal/threadpool"
)

var (
	version = "dev"
)

// options はコマンドラインで指定された値
type options struct {
	configFile  string
	host        string
	port        int
	workers     int
	root        string
	maxRequests int
	admin       string
	logLevel    string
}

func main() {
	// フラグ定義
	var (
		opts        options
		showVersion = flag.Bool("version", false, "バージョンを表示")
	)
	flag.StringVar(&opts.configFile, "config", "", "設定ファイルパス (YAML/JSON)")
	flag.StringVar(&opts.host, "host", "", "待ち受けホスト (デフォルト: 127.0.0.1)")
	flag.IntVar(&opts.port, "port", 0, "待ち受けポート (デフォルト: 7878)")
	flag.IntVar(&opts.workers, "workers", 0, "ワーカー数 (デフォルト: 4)")
	flag.StringVar(&opts.root, "root", "", "hello.html と 404.html を置くディレクトリ")
	flag.IntVar(&opts.maxRequests, "max-requests", 0, "この件数を受け付けたら終了 (0 は無制限)")
	flag.StringVar(&opts.admin, "admin", "", "管理用 HTTP サーバーのアドレス (例: :8080, 空なら無効)")
	flag.StringVar(&opts.logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `hello-server - Multithreaded Hello Web Server

Usage:
  hello-server [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # デフォルト設定で起動 (127.0.0.1:7878, 4 workers)
  hello-server

  # 3 件受け付けたらプールを閉じて終了
  hello-server --max-requests 3

  # 設定ファイルから起動
  hello-server --config hello.yaml

  # 管理用 API とメトリクスを有効化
  hello-server --admin :8080 --log-level debug
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("hello-server version %s\n", version)
		return
	}

	if err := run(opts); err != nil {
		logger.Error("", "%v", err)
		os.Exit(1)
	}
}

// settings は起動に必要な設定一式
type settings struct {
	server server.Config
	pool   threadpool.Config
	admin  string
	level  logger.Level
}

// buildSettings は設定ファイルとフラグから設定を組み立てる
func buildSettings(opts options) (settings, error) {
	var s settings

	// 1. 設定ファイルから読み込み
	fileConfig := &config.FileConfig{}
	if opts.configFile != "" {
		var err error
		fileConfig, err = config.LoadFile(opts.configFile)
		if err != nil {
			return s, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
	}
	if err := fileConfig.Validate(); err != nil {
		return s, fmt.Errorf("設定検証エラー: %w", err)
	}

	var err error
	if s.server, err = fileConfig.ToServerConfig(); err != nil {
		return s, fmt.Errorf("設定変換エラー: %w", err)
	}
	if s.pool, err = fileConfig.ToPoolConfig(); err != nil {
		return s, fmt.Errorf("設定変換エラー: %w", err)
	}
	if s.level, err = fileConfig.LogLevel(); err != nil {
		return s, fmt.Errorf("設定変換エラー: %w", err)
	}
	s.admin = fileConfig.Admin.Addr

	// 2. フラグでオーバーライド
	if opts.host != "" {
		s.server.Host = opts.host
	}
	if opts.port > 0 {
		s.server.Port = opts.port
	}
	if opts.root != "" {
		s.server.Root = opts.root
	}
	if opts.maxRequests > 0 {
		s.server.MaxRequests = opts.maxRequests
	}
	if opts.admin != "" {
		s.admin = opts.admin
	}
	if opts.logLevel != "" {
		if s.level, err = logger.ParseLevel(opts.logLevel); err != nil {
			return s, err
		}
	}
	// 0 以下はそのまま渡してプール生成時にエラーにする
	if opts.workers != 0 {
		s.pool.Size = opts.workers
	}

	return s, nil
}

// run はサーバーを起動し、終了までブロックする
func run(opts options) (err error) {
	s, err := buildSettings(opts)
	if err != nil {
		return err
	}
	logger.Default.SetLevel(s.level)

	bus := events.NewBus()
	defer bus.Close()
	m := metrics.New()

	s.pool.Logger = logger.Default
	s.pool.Events = bus
	pool, err := threadpool.BuildWithConfig(s.pool)
	if err != nil {
		return err
	}

	srv := server.New(s.server, pool,
		server.WithLogger(logger.Default),
		server.WithMetrics(m),
		server.WithEvents(bus),
	)
	if err := srv.Listen(); err != nil {
		pool.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n中断シグナルを受信、サーバーを終了中...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// 管理サーバーはメインの受付ループとは別のコンテキストで止める
	adminCtx, stopAdmin := context.WithCancel(context.Background())
	adminErr := make(chan error, 1)
	if s.admin != "" {
		admin := api.NewServer(s.admin, pool, m, bus, logger.Default)
		go func() {
			adminErr <- admin.Start(adminCtx)
		}()
	} else {
		close(adminErr)
	}

	fmt.Println("hello-server - Multithreaded Hello Web Server")
	fmt.Println("==============================================")
	fmt.Printf("Listening: http://%s\n", srv.Addr())
	fmt.Printf("Workers: %d, Root: %s\n", pool.Size(), s.server.Root)
	if s.admin != "" {
		fmt.Printf("Admin: http://%s\n", s.admin)
	}
	fmt.Println("==============================================")
	fmt.Println()
	fmt.Println("Server starting.")

	err = srv.Serve(ctx)

	fmt.Println("Shutting down.")
	err = multierr.Append(err, srv.Close())
	pool.Close()

	stopAdmin()
	if aerr, ok := <-adminErr; ok && aerr != nil && !errors.Is(aerr, context.Canceled) {
		err = multierr.Append(err, fmt.Errorf("admin server: %w", aerr))
	}

	snap := m.Snapshot()
	fmt.Printf("Served %d connections (%d ok, %d not found, %d failed, %d empty)\n",
		snap.Served, snap.OK, snap.NotFound, snap.Failed, snap.Empty)

	return err
}
