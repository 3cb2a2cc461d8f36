package content

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	gopher "github.com/stryan/go-gopher"

	"multicap/internal/mimetable"
	"multicap/internal/request"
	"multicap/internal/resolve"
	"multicap/internal/status"
)

func baseInput(t *testing.T, fs afero.Fs) Input {
	t.Helper()
	mt := mimetable.New([]mimetable.Entry{
		{Ext: "gmi", MIME: "text/gemini", GopherType: gopher.FILE},
		{Ext: "txt", MIME: "text/plain", GopherType: gopher.FILE},
	})
	return Input{
		FS:          fs,
		MimeTable:   mt,
		FQDN:        "example.com",
		Host:        "example",
		FortunesDir: "/fortunes",
		Now:         time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Seed:        42,
	}
}

func TestDispatchServesStaticFileOverVirtualPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/example.com/status", []byte("literal file wins"), 0644); err != nil {
		t.Fatal(err)
	}
	in := baseInput(t, fs)
	in.Req = request.Request{Proto: status.Gemini, Path: "/status"}
	in.Resolved = resolve.Result{FSPath: "/example.com/status", VHostEnd: len("/example.com")}

	resp := Dispatch(in)
	if resp.Status != status.OK || string(resp.Body) != "literal file wins" {
		t.Fatalf("got %+v", resp)
	}
}

func TestDispatchStatusPage(t *testing.T) {
	fs := afero.NewMemMapFs()
	in := baseInput(t, fs)
	in.Req = request.Request{Proto: status.Gemini, Path: "/status"}
	in.Resolved = resolve.Result{FSPath: "/example.com/status", VHostEnd: len("/example.com")}

	resp := Dispatch(in)
	if resp.Status != status.OK || !strings.Contains(string(resp.Body), "# Status") {
		t.Fatalf("got %+v", resp)
	}
}

func TestDispatchAuthRequiredGate(t *testing.T) {
	fs := afero.NewMemMapFs()
	in := baseInput(t, fs)
	in.Req = request.Request{Proto: status.Gemini, Path: "/admin/create-directory", Authenticated: false}
	in.Resolved = resolve.Result{FSPath: "/example.com/admin/create-directory", VHostEnd: len("/example.com")}

	resp := Dispatch(in)
	if resp.Status != status.AUTH_REQUIRED {
		t.Fatalf("got %+v", resp)
	}
}

func TestDispatchCreateDirectoryFlow(t *testing.T) {
	fs := afero.NewMemMapFs()
	in := baseInput(t, fs)
	in.Req = request.Request{Proto: status.Gemini, Path: "/admin/create-directory", Authenticated: true}
	in.Resolved = resolve.Result{FSPath: "/example.com/admin/create-directory", VHostEnd: len("/example.com")}

	resp := Dispatch(in)
	if resp.Status != status.INPUT {
		t.Fatalf("expected INPUT prompt with empty query, got %+v", resp)
	}

	in.Req.Query = "/new-project"
	resp = Dispatch(in)
	if resp.Status != status.REDIR || resp.Meta != "/new-project" {
		t.Fatalf("got %+v", resp)
	}
	if ok, _ := afero.DirExists(fs, "/example.com/new-project"); !ok {
		t.Fatalf("directory was not created")
	}
}

func TestDispatchDirectoryListingWhenNoIndex(t *testing.T) {
	fs := afero.NewMemMapFs()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(fs.MkdirAll("/example.com/docs", 0755))
	must(afero.WriteFile(fs, "/example.com/docs/a.gmi", []byte("a"), 0644))
	must(afero.WriteFile(fs, "/example.com/docs/.hidden", []byte("h"), 0644))

	in := baseInput(t, fs)
	in.Req = request.Request{Proto: status.Gemini, Path: "/docs/"}
	in.Resolved = resolve.Result{
		FSPath:   "/example.com/docs/index.gmi",
		VHostEnd: len("/example.com"),
		DirEnd:   len("/example.com/docs"),
		IsDir:    true,
	}

	resp := Dispatch(in)
	if resp.Status != status.OK {
		t.Fatalf("got %+v", resp)
	}
	if !strings.Contains(string(resp.Body), "=> /docs/a.gmi") {
		t.Fatalf("missing listing entry: %q", resp.Body)
	}
	if strings.Contains(string(resp.Body), "hidden") {
		t.Fatalf("hidden entry leaked: %q", resp.Body)
	}
}

func TestDispatchNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	in := baseInput(t, fs)
	in.Req = request.Request{Proto: status.Gemini, Path: "/nope"}
	in.Resolved = resolve.Result{FSPath: "/example.com/nope", VHostEnd: len("/example.com")}

	resp := Dispatch(in)
	if resp.Status != status.NOT_FOUND {
		t.Fatalf("got %+v", resp)
	}
}

func TestDispatchTinylogNewFlow(t *testing.T) {
	fs := afero.NewMemMapFs()
	in := baseInput(t, fs)
	in.Req = request.Request{Proto: status.Gemini, Path: "/tinylog/new", Authenticated: true, Query: "hello world"}
	in.Resolved = resolve.Result{FSPath: "/example.com/tinylog/new", VHostEnd: len("/example.com")}

	resp := Dispatch(in)
	if resp.Status != status.REDIR || resp.Meta != "/tinylog.gmi" {
		t.Fatalf("got %+v", resp)
	}
	data, err := afero.ReadFile(fs, "/example.com/tinylog.gmi")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello world") {
		t.Fatalf("entry missing: %q", data)
	}
}
