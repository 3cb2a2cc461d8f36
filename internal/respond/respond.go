// Package respond implements the protocol-specific header emission of spec
// §4.5: SendHeader writes a correct status line for the requesting dialect
// and returns the numeric code for the access log.
package respond

import (
	"fmt"
	"io"

	"multicap/internal/status"
)

// SendHeader writes the status header for proto/s with the given meta text
// (a MIME type for OK, a prompt for INPUT/PASSWORD, a URL for
// REDIR/MOVED, or a human-readable message otherwise) and returns the
// numeric status code for the access log.
//
// For Gopher, OK produces no header at all — the body itself carries
// per-entry type prefixes — matching spec §4.5's Gopher row.
func SendHeader(w io.Writer, proto status.Proto, s status.Status, meta, fqdn string) int {
	code := status.Code(proto, s)
	switch proto {
	case status.Gemini, status.Spartan:
		fmt.Fprintf(w, "%d %s\r\n", code, meta)
	case status.HTTP:
		writeHTTPHeader(w, s, code, meta)
	case status.Gopher:
		writeGopherHeader(w, s, meta, fqdn)
	}
	return code
}

func writeHTTPHeader(w io.Writer, s status.Status, code int, meta string) {
	switch s {
	case status.OK:
		fmt.Fprintf(w, "HTTP/1.0 200 OK\r\nContent-Type: %s; encoding=utf8\r\nConnection: close\r\n\r\n", meta)
	case status.MOVED, status.REDIR:
		fmt.Fprintf(w, "HTTP/1.0 301 Moved\r\nLocation: %s\r\nConnection: close\r\n\r\n", meta)
	default:
		fmt.Fprintf(w, "HTTP/1.0 %d %s\r\nConnection: close\r\n\r\n", code, meta)
	}
}

func writeGopherHeader(w io.Writer, s status.Status, meta, fqdn string) {
	switch s {
	case status.MOVED, status.REDIR:
		fmt.Fprintf(w, "1Redirect to %s\t%s\t%s\t70\r\n", meta, meta, fqdn)
	case status.OK, status.INPUT, status.PASSWORD:
		// no header; body carries type prefixes
	default:
		fmt.Fprintf(w, "i%s\t\t%s\t70\r\n", meta, fqdn)
	}
}
