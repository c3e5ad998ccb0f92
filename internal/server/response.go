package server

import (
	"bufio"
	"fmt"
	"io"
)

const (
	StatusOK       = "HTTP/1.1 200 OK"
	StatusNotFound = "HTTP/1.1 404 NOT FOUND"
)

// ReadRequest は空行か EOF までリクエストを行単位で読む
// 行末の \r\n / \n は取り除かれる
func ReadRequest(r io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("read request: %w", err)
	}
	return lines, nil
}

// WriteResponse はステータス行と本文から応答を組み立てて一度に書き込む
func WriteResponse(w io.Writer, status string, body []byte) error {
	resp := fmt.Appendf(nil, "%s\r\nContent-Length: %d\r\n\r\n", status, len(body))
	resp = append(resp, body...)

	if _, err := w.Write(resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
