package proto

import (
	"bufio"
	"strings"

	"multicap/internal/lineio"
	"multicap/internal/request"
	"multicap/internal/status"
	"multicap/internal/uri"
)

// MaxGopherLine bounds a Gopher selector line.
const MaxGopherLine = 1024

// DefaultIndexGopher is the directory-index filename used on the Gopher
// protocol (spec §4.4 step 6b).
const DefaultIndexGopher = "gopher.map"

// ParseGopher reads a single selector line, optionally followed by a
// tab-separated query, per spec §4.12. An empty line means the root
// selector "/". There is no host and no percent-decoding on Gopher.
func ParseGopher(br *bufio.Reader) (request.Request, *Error) {
	buf := make([]byte, MaxGopherLine+3)
	n, res := lineio.ReadLine(br, buf)
	if res == lineio.EOF {
		return request.Request{}, invalid("No request")
	}
	if res == lineio.Overflow {
		return request.Request{}, invalid("Request too large")
	}

	raw := string(buf[:n])
	selector := raw
	query := ""
	if i := strings.IndexByte(raw, '\t'); i >= 0 {
		selector = raw[:i]
		query = raw[i+1:]
	}
	if selector == "" {
		selector = "/"
	}
	if !strings.HasPrefix(selector, "/") {
		selector = "/" + selector
	}

	return request.Request{
		Proto: status.Gopher,
		Path:  uri.FoldPath(selector),
		Query: query,
		Raw:   raw,
	}, nil
}
