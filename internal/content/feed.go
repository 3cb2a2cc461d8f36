package content

import (
	"bufio"
	"strings"

	"github.com/spf13/afero"

	"multicap/internal/clock"
	"multicap/internal/status"
)

// Feed generates the Gemini feed for directory dir (filesystem path),
// exposed at the requested urlPath, per spec §4.10. Each entry's date is
// its file's last-write time.
func Feed(fs afero.Fs, proto status.Proto, dir, urlPath, fqdn string) (string, error) {
	var b strings.Builder

	if data, err := afero.ReadFile(fs, dir+"/feed-hdr.gmi"); err == nil {
		b.Write(data)
	} else {
		title, ok := firstTitle(fs, dir+"/index.gmi")
		if !ok {
			title = "No title"
		}
		b.WriteString("# " + title + "\r\n\r\n")
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if isFeedSkip(e.Name()) {
			continue
		}
		title, ok := firstTitle(fs, dir+"/"+e.Name())
		if !ok {
			title = e.Name()
		}
		date := clock.FeedDate(e.ModTime())
		if proto == status.Gopher {
			b.WriteString(date + " " + title + "\t" + urlPath + "/" + e.Name() + "\t" + fqdn + "\t70\r\n")
		} else {
			b.WriteString("=> " + urlPath + "/" + e.Name() + " " + date + " " + title + "\r\n")
		}
	}

	if data, err := afero.ReadFile(fs, dir+"/feed-ftr.gmi"); err == nil {
		b.Write(data)
	}

	return b.String(), nil
}

func isFeedSkip(name string) bool {
	switch {
	case strings.HasPrefix(name, "index."):
		return true
	case strings.HasPrefix(name, "gopher."):
		return true
	case strings.HasPrefix(name, "feed"):
		return true
	default:
		return false
	}
}

// firstTitle implements the "up to first 5 lines, first '#'-prefixed line"
// title heuristic shared by the feed generator for both the feed header
// and per-entry titles.
func firstTitle(fs afero.Fs, path string) (string, bool) {
	f, err := fs.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for i := 0; i < 5 && sc.Scan(); i++ {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# \t")), true
		}
	}
	return "", false
}
