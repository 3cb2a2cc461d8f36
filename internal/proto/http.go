package proto

import (
	"bufio"
	"strings"

	"multicap/internal/lineio"
	"multicap/internal/request"
	"multicap/internal/status"
	"multicap/internal/uri"
)

// MaxHTTPLine bounds the HTTP/1.0 request line.
const MaxHTTPLine = 2048

// ParseHTTP reads and parses "METHOD SP PATH SP PROTO\r\n", then drains and
// discards the rest of the request (no Host header parsing — the server's
// fqdn is always the virtual host, per spec §4.12). Non-goals exclude
// HTTP/1.1, keep-alive, and range requests, so nothing past the request
// line is meaningful here.
func ParseHTTP(br *bufio.Reader) (request.Request, *Error) {
	buf := make([]byte, MaxHTTPLine+3)
	n, res := lineio.ReadLine(br, buf)
	if res == lineio.EOF {
		return request.Request{}, invalid("No request")
	}
	if res == lineio.Overflow {
		return request.Request{}, invalid("Request too large")
	}

	raw := string(buf[:n])
	fields := strings.Fields(raw)
	if len(fields) != 3 {
		return request.Request{}, invalid("Malformed request line")
	}
	method, target := fields[0], fields[1]
	if method != "GET" && method != "HEAD" {
		return request.Request{}, invalid("Unsupported method")
	}

	path, query := target, ""
	if i := strings.IndexByte(target, '?'); i >= 0 {
		path, query = target[:i], target[i+1:]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	drainHeaders(br)

	return request.Request{
		Proto: status.HTTP,
		Path:  uri.FoldPath(path),
		Query: uri.PercentDecode(query),
		Raw:   raw,
	}, nil
}

// drainHeaders reads and discards lines until a blank line (end of headers)
// or EOF, matching spec §4.12's "Drain and discard the rest of the
// request."
func drainHeaders(br *bufio.Reader) {
	buf := make([]byte, MaxHTTPLine+3)
	for {
		n, res := lineio.ReadLine(br, buf)
		if res == lineio.EOF || res == lineio.Overflow {
			return
		}
		if n == 0 {
			return
		}
	}
}
