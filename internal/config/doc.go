// Package config は YAML / JSON の設定ファイルを読み込み、
// サーバーとスレッドプールの設定に変換する。
//
// 例:
//
//	server:
//	  port: 7878
//	  root: .
//	  sleep_delay: 5s
//	  max_requests: 3
//	pool:
//	  size: 4
//	  on_poison: fatal
//	admin:
//	  addr: 127.0.0.1:9090
//	log:
//	  level: info
//
// 未指定の項目はそれぞれの DefaultConfig の値になる。
package config
