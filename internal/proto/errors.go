// Package proto implements the four per-protocol request parsers of spec
// §4.12: Gemini (+ the Titan upload extension), Spartan, Gopher, and
// HTTP/1.0. Each adapter canonicalizes its wire syntax into the shared
// request.Request tuple; none of them touch the filesystem or decide how
// to respond — that's the path resolver and content dispatcher's job.
package proto

import "multicap/internal/status"

// Error is a parse-time failure; Status is the protocol-agnostic outcome
// the caller should send (almost always INVALID), and Text is the
// human-readable message for the header's meta field.
type Error struct {
	Status status.Status
	Text   string
}

func (e *Error) Error() string { return e.Text }

func invalid(text string) *Error {
	return &Error{Status: status.INVALID, Text: text}
}
