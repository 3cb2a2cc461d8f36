package content

import (
	"strings"

	"github.com/spf13/afero"
	gopher "github.com/stryan/go-gopher"

	"multicap/internal/mimetable"
	"multicap/internal/resolve"
	"multicap/internal/status"
)

// Listing generates a directory listing for dir (filesystem path), exposed
// at urlPath, per spec §4.6 branch 2. Hidden entries (leading '.') are
// skipped; subdirectories get a trailing '/'.
func Listing(fs afero.Fs, mt *mimetable.Table, proto status.Proto, dir, urlPath, fqdn string) (string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		if proto == status.Gopher {
			itemType := gopher.ItemType('1')
			if !e.IsDir() {
				_, itemType = mt.Lookup(resolve.Ext(e.Name()))
			}
			b.WriteString(string(itemType) + name)
			b.WriteString("\t" + urlPath + "/" + name)
			b.WriteString("\t" + fqdn + "\t70\r\n")
		} else {
			b.WriteString("=> " + urlPath + "/" + name + "\t" + name + "\r\n")
		}
	}
	return b.String(), nil
}

// StatusPage generates the Gemini /status admin page.
func StatusPage(fqdn string, extra map[string]string) string {
	var b strings.Builder
	b.WriteString("# Status\r\n\r\n")
	b.WriteString("=> / Home\r\n\r\n")
	b.WriteString("Host: " + fqdn + "\r\n")
	for k, v := range extra {
		b.WriteString(k + ": " + v + "\r\n")
	}
	return b.String()
}
