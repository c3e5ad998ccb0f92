//go:build !unix

package server

import "syscall"

// SO_REUSEADDR は unix 以外では設定しない
var reuseAddrControl func(network, address string, c syscall.RawConn) error
