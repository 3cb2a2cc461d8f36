package content

import (
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"multicap/internal/clock"
	"multicap/internal/mimetable"
	"multicap/internal/request"
	"multicap/internal/resolve"
	"multicap/internal/status"
)

// Response is the outcome of dispatching a resolved request: a
// protocol-agnostic status, a meta string for the header (a MIME type,
// prompt, URL, or message depending on Status), and an already-materialized
// body.
type Response struct {
	Status status.Status
	Meta   string
	Body   []byte
	// RawGopher, when true and Status is OK, means the body should be
	// streamed without the per-entry Gopher type-prefix framing that
	// Listing/Feed already apply — used for plain file streaming.
	RawGopher bool
	// Menu marks a Gopher OK response whose body is a tab-separated menu
	// (a directory listing) rather than raw file bytes; the server loop
	// appends the ".\r\n" selector terminator after these and these alone.
	Menu bool
}

// Input bundles everything the dispatcher needs to decide and build a
// Response.
type Input struct {
	FS          afero.Fs
	MimeTable   *mimetable.Table
	FQDN        string
	Host        string
	TitanToken  string
	FortunesDir string
	Now         time.Time
	Seed        int64 // fortune RNG seed; 0 means use time-derived entropy
	Req         request.Request
	Resolved    resolve.Result
}

// Dispatch implements spec §4.6's content dispatcher: it selects exactly
// one branch in priority order and returns the Response to send.
func Dispatch(in Input) Response {
	if in.Req.Query != "nofile" {
		if ok, _ := afero.Exists(in.FS, in.Resolved.FSPath); ok {
			return serveFile(in)
		}
	}
	if in.Resolved.IsDir {
		return serveListing(in)
	}
	return dispatchVirtual(in)
}

func serveFile(in Input) Response {
	data, err := afero.ReadFile(in.FS, in.Resolved.FSPath)
	if err != nil {
		return Response{Status: status.SERVER_ERROR, Meta: "Error reading file"}
	}
	if in.Req.Proto == status.Gopher {
		return Response{Status: status.OK, Body: data, RawGopher: true}
	}
	mime, _ := in.MimeTable.Lookup(resolve.Ext(in.Resolved.FSPath))
	return Response{Status: status.OK, Meta: mime, Body: data}
}

func serveListing(in Input) Response {
	dir := in.Resolved.FSPath[:in.Resolved.DirEnd]
	urlPath := strings.TrimSuffix(in.Req.Path, "/")
	body, err := Listing(in.FS, in.MimeTable, in.Req.Proto, dir, urlPath, in.FQDN)
	if err != nil {
		return Response{Status: status.SERVER_ERROR, Meta: "Unable to list directory"}
	}
	if in.Req.Proto == status.Gopher {
		return Response{Status: status.OK, Body: []byte(body), RawGopher: true, Menu: true}
	}
	return Response{Status: status.OK, Meta: "text/gemini", Body: []byte(body)}
}

func dispatchVirtual(in Input) Response {
	req := in.Req
	vhostRoot := in.Resolved.FSPath[:in.Resolved.VHostEnd]
	base := resolve.Basename(in.Resolved.FSPath)
	ext := resolve.Ext(in.Resolved.FSPath)

	switch {
	case req.Path == "/status" && req.Proto == status.Gemini:
		return Response{Status: status.OK, Meta: "text/gemini", Body: []byte(StatusPage(in.FQDN, map[string]string{
			"Time": in.Now.Format("2006-01-02 15:04:05 MST"),
		}))}

	case strings.HasPrefix(req.Path, "/fortunes"):
		return dispatchFortune(in)

	case req.Path == "/input" && req.Proto == status.Gemini:
		if !req.Authenticated {
			return Response{Status: status.AUTH_REQUIRED, Meta: "Client identification is required."}
		}
		return Response{Status: status.PASSWORD, Meta: "Password:"}

	case req.Path == "/admin/create-directory" && req.Proto == status.Gemini:
		if !req.Authenticated {
			return Response{Status: status.AUTH_REQUIRED, Meta: "Client identification is required."}
		}
		if req.Query == "" {
			return Response{Status: status.INPUT, Meta: "Directory (absolute path):"}
		}
		if err := in.FS.MkdirAll(vhostRoot+"/"+req.Query, 0755); err != nil {
			return Response{Status: status.SERVER_ERROR, Meta: "Unable to create directory"}
		}
		return Response{Status: status.REDIR, Meta: req.Query}

	case req.Path == "/cpio":
		if !req.Authenticated {
			return Response{Status: status.AUTH_REQUIRED, Meta: "Client identification is required."}
		}
		stamp := clock.ArchiveStamp(in.Now)
		return Response{Status: status.REDIR, Meta: "/" + in.Host + "-" + stamp + ".cpio"}

	case ext == "cpio":
		if !req.Authenticated {
			return Response{Status: status.AUTH_REQUIRED, Meta: "Client identification is required."}
		}
		dir := filepath.Dir(in.Resolved.FSPath)
		var buf strings.Builder
		if err := WriteCPIO(in.FS, &buf, dir); err != nil {
			return Response{Status: status.SERVER_ERROR, Meta: "Unable to build archive"}
		}
		return Response{Status: status.OK, Meta: "application/x-cpio", Body: []byte(buf.String())}

	case base == "feed.gmi":
		if !req.Authenticated {
			return Response{Status: status.AUTH_REQUIRED, Meta: "Client identification is required."}
		}
		dir := filepath.Dir(in.Resolved.FSPath)
		urlPath := strings.TrimSuffix(req.Path, "/feed.gmi")
		body, err := Feed(in.FS, req.Proto, dir, urlPath, in.FQDN)
		if err != nil {
			return Response{Status: status.SERVER_ERROR, Meta: "Unable to build feed"}
		}
		return Response{Status: status.OK, Meta: "text/gemini", Body: []byte(body)}

	case req.Path == "/tinylog/new" && req.Proto == status.Gemini:
		if !req.Authenticated {
			return Response{Status: status.AUTH_REQUIRED, Meta: "Client identification is required."}
		}
		if req.Query == "" {
			return Response{Status: status.INPUT, Meta: "Entry text:"}
		}
		if err := InsertTinylog(in.FS, vhostRoot, req.Query, in.Now); err != nil {
			return Response{Status: status.SERVER_ERROR, Meta: "Unable to append entry"}
		}
		return Response{Status: status.REDIR, Meta: "/tinylog.gmi"}

	default:
		return Response{Status: status.NOT_FOUND, Meta: "Not found"}
	}
}

func dispatchFortune(in Input) Response {
	name := strings.TrimPrefix(in.Req.Path, "/fortunes")
	name = strings.Trim(name, "/")
	if name == "" {
		name = "default"
	}
	seed := in.Seed
	if seed == 0 {
		seed = in.Now.UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	body, err := Fortune(in.FS, in.FortunesDir, name, rng)
	if err != nil {
		return Response{Status: status.NOT_FOUND, Meta: "No such fortune"}
	}
	return Response{Status: status.OK, Meta: "text/gemini", Body: []byte(body)}
}
