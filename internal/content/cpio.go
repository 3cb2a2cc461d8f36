package content

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// WriteCPIO depth-first walks dir and writes a "new ASCII" cpio archive
// (spec §3, §4.9) of every regular file found, terminated by a TRAILER!!!
// record. Mode is fixed to 0100644; ino/uid/gid/dev/rdev are 0; nlink is 1;
// mtime is each file's last-write time.
func WriteCPIO(fs afero.Fs, w io.Writer, dir string) error {
	type file struct {
		path  string
		mtime int64
	}
	var files []file
	err := afero.Walk(fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		files = append(files, file{path: p, mtime: info.ModTime().Unix()})
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })

	for _, f := range files {
		data, err := afero.ReadFile(fs, f.path)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(f.path, "/")
		if err := writeCPIORecord(w, name, data, 0100644, 1, f.mtime); err != nil {
			return err
		}
	}
	return writeCPIOTrailer(w)
}

// writeCPIORecord emits one "new ASCII" cpio header + name + body, each of
// (header+name) and body padded to a 4-byte boundary with NULs. mode and
// nlink are parameters rather than fixed constants so the trailer record
// (spec §4.9: "all-zero numeric fields") can pass zero for both.
func writeCPIORecord(w io.Writer, name string, body []byte, mode, nlink, mtime int64) error {
	nameSize := len(name) + 1 // NUL terminator
	hdr := cpioHeader{
		ino:        0,
		mode:       mode,
		uid:        0,
		gid:        0,
		nlink:      nlink,
		mtime:      mtime,
		filesize:   int64(len(body)),
		devmajor:   0,
		devminor:   0,
		rdevmajor:  0,
		rdevminor:  0,
		namesize:   int64(nameSize),
		check:      0,
	}
	if _, err := w.Write(hdr.bytes()); err != nil {
		return err
	}
	if _, err := io.WriteString(w, name); err != nil {
		return err
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	if err := writePad(w, 110+nameSize); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	return writePad(w, len(body))
}

func writeCPIOTrailer(w io.Writer) error {
	return writeCPIORecord(w, "TRAILER!!!", nil, 0, 0, 0)
}

func writePad(w io.Writer, n int) error {
	pad := (4 - n%4) % 4
	if pad == 0 {
		return nil
	}
	_, err := w.Write(make([]byte, pad))
	return err
}

// cpioHeader is the "new ASCII" cpio header: magic "070701" followed by 13
// 8-hex-digit fields, 110 bytes total.
type cpioHeader struct {
	ino, mode, uid, gid, nlink                    int64
	mtime, filesize                               int64
	devmajor, devminor, rdevmajor, rdevminor       int64
	namesize, check                               int64
}

func (h cpioHeader) bytes() []byte {
	return []byte(fmt.Sprintf(
		"070701%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x",
		h.ino, h.mode, h.uid, h.gid, h.nlink, h.mtime, h.filesize,
		h.devmajor, h.devminor, h.rdevmajor, h.rdevminor, h.namesize, h.check,
	))
}

// CPIOPathFor returns the archive filename for /<host>-YYYYMMDD-HHMMSS.cpio
// style endpoints (spec §4.6).
func CPIOPathFor(host, stamp string) string {
	return path.Join("/", fmt.Sprintf("%s-%s.cpio", host, stamp))
}
