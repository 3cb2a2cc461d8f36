package proto

import (
	"bufio"
	"io"
	"strings"

	"multicap/internal/lineio"
	"multicap/internal/request"
	"multicap/internal/status"
	"multicap/internal/uri"
)

// MaxRequestLine is the largest Gemini/Titan request line accepted, not
// counting the CR/LF terminator (spec §4.12: "≤1024 bytes").
const MaxRequestLine = 1024

// DefaultIndexGemini is the index filename appended to a directory request
// on Gemini, Spartan, and HTTP.
const DefaultIndexGemini = "index.gmi"

// ParseGemini reads one CRLF-terminated request line from br and
// canonicalizes it into a request.Request. authenticated reflects whether
// the connection arrived on the authenticated Gemini listener (spec §3).
// If the request parses as a titan:// URL, Req.Titan is populated but the
// upload body itself is NOT read here — call ReceiveTitanBody next.
func ParseGemini(br *bufio.Reader, authenticated bool) (request.Request, *Error) {
	buf := make([]byte, MaxRequestLine+3)
	n, res := lineio.ReadLine(br, buf)
	if res == lineio.EOF {
		return request.Request{}, invalid("No request")
	}
	if res == lineio.Overflow {
		return request.Request{}, invalid("Request too large")
	}

	raw := string(buf[:n])
	rawTrimmed := uri.Trim(raw)

	var scheme string
	switch {
	case strings.HasPrefix(rawTrimmed, "titan://"):
		scheme = "titan"
	case strings.HasPrefix(rawTrimmed, "gemini://"):
		scheme = "gemini"
	default:
		return request.Request{}, invalid("Unsupported scheme")
	}

	rest := rawTrimmed[len(scheme)+3:] // strip "scheme://"

	host, port, path, query := splitAuthority(rest)
	if host == "" {
		return request.Request{}, invalid("Invalid URL: empty host")
	}

	req := request.Request{
		Proto:         status.Gemini,
		Authenticated: authenticated,
		Host:          host,
		Port:          port,
		Path:          uri.FoldPath(path),
		Query:         uri.PercentDecode(query),
		Raw:           raw,
	}

	if scheme == "titan" {
		params, perr := parseTitanParams(query)
		if perr != nil {
			return request.Request{}, perr
		}
		req.Titan = params
	}

	return req, nil
}

// splitAuthority finds the authority (host[:port]) terminator at the first
// '/', '?', or end of string, then splits out host/port, and the path
// (synthesizing "/" if absent) and raw query (everything after the first
// '?', unparsed).
func splitAuthority(rest string) (host, port, path, query string) {
	end := len(rest)
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		end = i
	}
	authority := rest[:end]
	remainder := rest[end:]

	host = authority
	if i := strings.IndexByte(authority, ':'); i >= 0 {
		host = authority[:i]
		port = authority[i+1:]
	}

	path = "/"
	query = ""
	if remainder != "" {
		if remainder[0] == '?' {
			query = remainder[1:]
		} else {
			// remainder starts with '/'
			if qi := strings.IndexByte(remainder, '?'); qi >= 0 {
				path = remainder[:qi]
				query = remainder[qi+1:]
			} else {
				path = remainder
			}
		}
	}
	return host, port, path, query
}

// parseTitanParams parses the Titan query string's `;`-separated
// key=value pairs, recognizing mime, size, and token (spec §4.11, §6).
func parseTitanParams(query string) (*request.TitanParams, *Error) {
	if query == "" {
		return nil, invalid("Invalid titan parameters")
	}
	p := &request.TitanParams{}
	for _, kv := range strings.Split(query, ";") {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}
		key, value := kv[:i], kv[i+1:]
		switch key {
		case "mime":
			p.MIME = value
		case "token":
			p.Token = value
		case "size":
			var size int64
			for _, c := range value {
				if c < '0' || c > '9' {
					return nil, invalid("Invalid payload size")
				}
				size = size*10 + int64(c-'0')
			}
			p.Size = size
		}
	}
	return p, nil
}

// ReceiveTitanBody reads exactly size bytes from br (which may already hold
// some of the body buffered from the request line read) into a new byte
// slice, enforcing that size fits within bufferCapacity. A short read (the
// connection closes before size bytes arrive) yields an error.
func ReceiveTitanBody(br *bufio.Reader, size int64, bufferCapacity int) ([]byte, *Error) {
	if size <= 0 {
		return nil, invalid("Invalid payload size")
	}
	if size > int64(bufferCapacity) {
		return nil, invalid("Insufficient buffer")
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, invalid("Error reading payload")
	}
	return buf, nil
}
