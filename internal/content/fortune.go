// Package content implements the nontrivial generators of spec §4.6–§4.11:
// the content dispatcher, directory listings, the strfile fortune reader,
// the tinylog inserter, the CPIO archiver, and the Gemini feed generator.
package content

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/spf13/afero"

	"multicap/internal/uri"
)

// strfileHeader is the 24-byte BE strfile header of spec §3.
type strfileHeader struct {
	Version  uint32
	NumStr   uint32
	LongLen  uint32
	ShortLen uint32
	Flags    uint32
	Delim    byte
	_        [3]byte
}

// strRotated is bit 0x04 of a strfile header's flags field. The original
// implementation this was grounded on tested `flags && 0x04` (logical AND)
// rather than `flags & 0x04` (bitwise AND) — almost certainly a bug, since
// the logical form is true for any nonzero flags value. This reader uses
// the evidently-intended bitwise test (spec §9 "Open questions").
const strRotated = 0x04

// Fortune reads a single random cookie from <fortunesDir>/<name>(.dat),
// using rng.Intn(numstr) to choose the index. The same seed always yields
// the same entry, but the entry for seed k is whatever math/rand's sequence
// produces for k, not the (k mod numstr)-th entry.
func Fortune(fs afero.Fs, fortunesDir, name string, rng *rand.Rand) (string, error) {
	hdr, err := readStrfileHeader(fs, fortunesDir+"/"+name+".dat")
	if err != nil {
		return "", err
	}
	if hdr.NumStr == 0 {
		return "", fmt.Errorf("fortune: %s has no entries", name)
	}
	idx := rng.Intn(int(hdr.NumStr))
	off, err := readOffset(fs, fortunesDir+"/"+name+".dat", idx)
	if err != nil {
		return "", err
	}

	cf, err := fs.Open(fortunesDir + "/" + name)
	if err != nil {
		return "", err
	}
	defer cf.Close()
	if _, err := cf.Seek(int64(off), io.SeekStart); err != nil {
		return "", err
	}

	rotated := hdr.Flags&strRotated != 0
	lines, err := readUntilDelim(cf, hdr.Delim, rotated)
	if err != nil {
		return "", err
	}
	return renderQuote(lines), nil
}

func readStrfileHeader(fs afero.Fs, datPath string) (strfileHeader, error) {
	f, err := fs.Open(datPath)
	if err != nil {
		return strfileHeader{}, err
	}
	defer f.Close()

	var raw [24]byte
	if _, err := io.ReadFull(f, raw[:]); err != nil {
		return strfileHeader{}, fmt.Errorf("fortune: short strfile header: %w", err)
	}
	return strfileHeader{
		Version:  binary.BigEndian.Uint32(raw[0:4]),
		NumStr:   binary.BigEndian.Uint32(raw[4:8]),
		LongLen:  binary.BigEndian.Uint32(raw[8:12]),
		ShortLen: binary.BigEndian.Uint32(raw[12:16]),
		Flags:    binary.BigEndian.Uint32(raw[16:20]),
		Delim:    raw[20],
	}, nil
}

func readOffset(fs afero.Fs, datPath string, idx int) (uint32, error) {
	f, err := fs.Open(datPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, err := f.Seek(int64(24+4*idx), io.SeekStart); err != nil {
		return 0, err
	}
	var raw [4]byte
	if _, err := io.ReadFull(f, raw[:]); err != nil {
		return 0, fmt.Errorf("fortune: short offset table: %w", err)
	}
	return binary.BigEndian.Uint32(raw[:]), nil
}

// readUntilDelim reads lines starting at the cookie file's current offset
// until a line consisting solely of delim is found or EOF.
func readUntilDelim(r io.Reader, delim byte, rotated bool) ([]string, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	delimLine := string(delim)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimRight(line, "\r") == delimLine {
			break
		}
		if rotated {
			line = uri.ROT13(line)
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// renderQuote implements spec §4.7's word-wrap-aware Gemini quote block: it
// starts each quoted line with "\r\n> ", but joins a continuation line onto
// the previous one with a single space when the previous line's last
// character is a lowercase letter, space, comma, semicolon, or hyphen.
func renderQuote(lines []string) string {
	var b strings.Builder
	prevJoinable := false
	for _, line := range lines {
		if prevJoinable {
			b.WriteByte(' ')
			b.WriteString(line)
		} else {
			b.WriteString("\r\n> ")
			b.WriteString(line)
		}
		prevJoinable = isJoinable(line)
	}
	return b.String()
}

func isJoinable(line string) bool {
	if line == "" {
		return false
	}
	c := line[len(line)-1]
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c == ' ' || c == ',' || c == ';' || c == '-':
		return true
	default:
		return false
	}
}
