package content

import (
	"bufio"
	"strings"
	"time"

	"github.com/spf13/afero"

	"multicap/internal/clock"
	"multicap/internal/lineio"
)

const tinylogScratch = "/~tinylog.tmp"

// tinylogState is the BEFORE -> INSERT -> AFTER state machine of spec §4.8.
type tinylogState int

const (
	tinylogBefore tinylogState = iota
	tinylogInsert
	tinylogAfter
)

// InsertTinylog appends entry to <vhostRoot>/tinylog.gmi, inserting it
// immediately before the first "## " line (or at EOF if there is none),
// archiving the original first, then atomically replacing it.
func InsertTinylog(fs afero.Fs, vhostRoot, entry string, now time.Time) error {
	target := vhostRoot + "/tinylog.gmi"
	scratch := vhostRoot + tinylogScratch

	in, err := fs.Open(target)
	isNew := false
	if err != nil {
		// A fresh tinylog: BEFORE has nothing to copy, header goes straight
		// to INSERT at EOF.
		isNew = true
	} else {
		defer in.Close()
	}

	out, err := fs.Create(scratch)
	if err != nil {
		return err
	}

	header := "## " + clock.TinylogHeader(now) + "\r\n"
	writeEntry := func(w *bufio.Writer) error {
		if _, err := w.WriteString(header); err != nil {
			return err
		}
		if _, err := w.WriteString(entry); err != nil {
			return err
		}
		_, err := w.WriteString("\r\n\r\n")
		return err
	}

	w := bufio.NewWriter(out)
	state := tinylogBefore
	if !isNew {
		r := bufio.NewReader(in)
		buf := make([]byte, 4096)
		for {
			n, res := lineio.ReadFileLine(r, buf, true)
			if res == lineio.EOF {
				if state == tinylogBefore {
					if err := writeEntry(w); err != nil {
						out.Close()
						return err
					}
					state = tinylogInsert
				}
				break
			}
			line := string(buf[:n])
			if state == tinylogBefore && strings.HasPrefix(line, "## ") {
				if err := writeEntry(w); err != nil {
					out.Close()
					return err
				}
				state = tinylogInsert
			}
			if _, err := w.WriteString(line); err != nil {
				out.Close()
				return err
			}
			if _, err := w.WriteString("\r\n"); err != nil {
				out.Close()
				return err
			}
			if state == tinylogInsert {
				state = tinylogAfter
			}
			// A pathologically long line (res == lineio.Overflow) is
			// already truncated at the terminator by ReadFileLine; the
			// copy above wrote what fit and the rest of that line is gone.
		}
	} else {
		if err := writeEntry(w); err != nil {
			out.Close()
			return err
		}
	}

	if err := w.Flush(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if !isNew {
		if err := Archive(fs, target, now); err != nil {
			return err
		}
	}
	return ReplaceAtomically(fs, scratch, target)
}
