package content

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"multicap/internal/status"
)

func TestFeedFallsBackToIndexTitle(t *testing.T) {
	fs := afero.NewMemMapFs()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(afero.WriteFile(fs, "/example.com/blog/index.gmi", []byte("intro\r\n# My Blog\r\nmore\r\n"), 0644))
	must(afero.WriteFile(fs, "/example.com/blog/post1.gmi", []byte("# First Post\r\nbody\r\n"), 0644))
	must(afero.WriteFile(fs, "/example.com/blog/.hidden.gmi", []byte("nope"), 0644))
	must(afero.WriteFile(fs, "/example.com/blog/gopher.map", []byte("skip me"), 0644))

	out, err := Feed(fs, status.Gemini, "/example.com/blog", "/blog", "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "# My Blog\r\n\r\n") {
		t.Fatalf("missing title header, got %q", out)
	}
	if !strings.Contains(out, "=> /blog/post1.gmi") || !strings.Contains(out, "First Post") {
		t.Fatalf("missing entry link, got %q", out)
	}
	if strings.Contains(out, "hidden") || strings.Contains(out, "skip me") {
		t.Fatalf("hidden/skip entries leaked: %q", out)
	}
}

func TestFeedUsesHeaderFooterFilesVerbatim(t *testing.T) {
	fs := afero.NewMemMapFs()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(afero.WriteFile(fs, "/example.com/blog/feed-hdr.gmi", []byte("CUSTOM HEADER\r\n"), 0644))
	must(afero.WriteFile(fs, "/example.com/blog/feed-ftr.gmi", []byte("CUSTOM FOOTER\r\n"), 0644))

	out, err := Feed(fs, status.Gemini, "/example.com/blog", "/blog", "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "CUSTOM HEADER\r\n") {
		t.Fatalf("header not used verbatim: %q", out)
	}
	if !strings.HasSuffix(out, "CUSTOM FOOTER\r\n") {
		t.Fatalf("footer not used verbatim: %q", out)
	}
}

func TestFeedGopherShape(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/example.com/blog/post1.gmi", []byte("# First Post\r\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := Feed(fs, status.Gopher, "/example.com/blog", "/blog", "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "\t/blog/post1.gmi\texample.com\t70\r\n") {
		t.Fatalf("gopher entry shape wrong: %q", out)
	}
}
