// Package mimetable holds the ordered extension -> (MIME type, Gopher item
// character) table loaded from configuration, and performs the three-byte
// prefix lookup described by spec §4.3.
package mimetable

import (
	"strings"

	gopher "github.com/stryan/go-gopher"
)

// Entry is one configured mime= record.
type Entry struct {
	Ext        string
	MIME       string
	GopherType gopher.ItemType
}

// DefaultMIME and DefaultGopherType are used when no configured entry
// matches the requested extension.
const DefaultMIME = "application/octet-stream"

var DefaultGopherType = gopher.BINARY

// Table is the ordered, read-only-after-init lookup table.
type Table struct {
	entries []Entry
}

// New builds a Table from configuration-ordered entries. First match wins
// on lookup, so order is preserved exactly as given.
func New(entries []Entry) *Table {
	t := &Table{entries: make([]Entry, len(entries))}
	copy(t.entries, entries)
	return t
}

// Lookup compares the first three characters of ext (case-sensitive, as
// configured) against each entry's extension in configured order. The
// leading dot, if present, is stripped before comparing.
func (t *Table) Lookup(ext string) (mime string, gopherType gopher.ItemType) {
	ext = strings.TrimPrefix(ext, ".")
	key := prefix3(ext)
	for _, e := range t.entries {
		if prefix3(e.Ext) == key {
			return e.MIME, e.GopherType
		}
	}
	return DefaultMIME, DefaultGopherType
}

func prefix3(s string) string {
	if len(s) <= 3 {
		return s
	}
	return s[:3]
}
