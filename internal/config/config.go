package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hello-server/internal/logger"
	"hello-server/internal/server"
	"hello-server/internal/threadpool"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Pool   PoolConfig   `yaml:"pool" json:"pool"`
	Admin  AdminConfig  `yaml:"admin" json:"admin"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// ServerConfig はリスナーと接続処理の設定
type ServerConfig struct {
	Host           string `yaml:"host" json:"host"`
	Port           int    `yaml:"port" json:"port"`
	Root           string `yaml:"root" json:"root"`
	SleepDelay     string `yaml:"sleep_delay" json:"sleep_delay"`
	ReadTimeout    string `yaml:"read_timeout" json:"read_timeout"`
	MaxRequests    int    `yaml:"max_requests" json:"max_requests"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
	ReuseAddr      *bool  `yaml:"reuse_addr" json:"reuse_addr"`
}

// PoolConfig はスレッドプールの設定
type PoolConfig struct {
	Size     int    `yaml:"size" json:"size"`
	OnPoison string `yaml:"on_poison" json:"on_poison"`
}

// AdminConfig は管理用 HTTP サーバーの設定
type AdminConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	sc := f.Server

	if sc.Port < 0 || sc.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}
	if sc.MaxRequests < 0 {
		return fmt.Errorf("server.max_requests must be non-negative")
	}
	if sc.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must be non-negative")
	}
	if f.Pool.Size < 0 {
		return fmt.Errorf("pool.size must be non-negative")
	}
	if _, err := threadpool.ParsePoisonPolicy(f.Pool.OnPoison); err != nil {
		return fmt.Errorf("pool.on_poison: %w", err)
	}
	if _, err := logger.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// ToServerConfig は server.Config に変換する。未指定の項目はデフォルト値
func (f *FileConfig) ToServerConfig() (server.Config, error) {
	sc := f.Server
	config := server.DefaultConfig()

	if sc.Host != "" {
		config.Host = sc.Host
	}
	if sc.Port > 0 {
		config.Port = sc.Port
	}
	if sc.Root != "" {
		config.Root = sc.Root
	}
	if sc.SleepDelay != "" {
		d, err := time.ParseDuration(sc.SleepDelay)
		if err != nil {
			return config, fmt.Errorf("invalid sleep_delay: %w", err)
		}
		config.SleepDelay = d
	}
	if sc.ReadTimeout != "" {
		d, err := time.ParseDuration(sc.ReadTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid read_timeout: %w", err)
		}
		config.ReadTimeout = d
	}
	if sc.MaxRequests > 0 {
		config.MaxRequests = sc.MaxRequests
	}
	if sc.MaxConnections > 0 {
		config.MaxConnections = sc.MaxConnections
	}
	if sc.ReuseAddr != nil {
		config.ReuseAddr = *sc.ReuseAddr
	}

	return config, nil
}

// ToPoolConfig は threadpool.Config に変換する
// ロガーとイベントバスは呼び出し側で設定する
func (f *FileConfig) ToPoolConfig() (threadpool.Config, error) {
	config := threadpool.DefaultConfig()

	if f.Pool.Size > 0 {
		config.Size = f.Pool.Size
	}
	policy, err := threadpool.ParsePoisonPolicy(f.Pool.OnPoison)
	if err != nil {
		return config, err
	}
	config.PoisonPolicy = policy

	return config, nil
}

// LogLevel はログレベルを返す
func (f *FileConfig) LogLevel() (logger.Level, error) {
	return logger.ParseLevel(f.Log.Level)
}
