package server

import (
	"net"
	"strconv"
	"time"
)

// Config はサーバーの設定
type Config struct {
	Host           string        // バインドするホスト
	Port           int           // バインドするポート（0で空きポート）
	Root           string        // hello.html と 404.html を置くディレクトリ
	SleepDelay     time.Duration // GET /sleep の待ち時間
	ReadTimeout    time.Duration // リクエスト読み込みのタイムアウト（0で無制限）
	MaxRequests    int           // 受け付ける接続数（0で無制限）
	MaxConnections int           // 同時に開いておく接続数の上限（0で無制限）
	ReuseAddr      bool          // SO_REUSEADDR を設定する
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Host:       "127.0.0.1",
		Port:       7878,
		Root:       ".",
		SleepDelay: 5 * time.Second,
		ReuseAddr:  true,
	}
}

// Address は host:port 形式のアドレスを返す
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
