// Package resolve implements the virtual-host resolver and path-safety
// filter of spec §4.4: it maps (host, path) to a real filesystem location
// under a per-host document root, rejecting traversal attempts and
// producing the split points generators need to climb back to a safe root.
package resolve

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrTraversal is returned when the request path contains "..", "/./", or
// "//". Callers must respond INVALID without touching the filesystem any
// further.
var ErrTraversal = errors.New("resolve: path traversal rejected")

// Result is the outcome of a successful resolution.
type Result struct {
	// FSPath is the synthesized filesystem path.
	FSPath string
	// VHostEnd is the byte offset in FSPath just past "/<vhost>".
	VHostEnd int
	// DirEnd is the byte offset in FSPath just past the directory portion,
	// including its trailing '/' (before the default index was appended), or
	// 0 if the target isn't a directory.
	DirEnd int
	// IsDir reports whether the resolved target is a directory (with the
	// default index appended to FSPath).
	IsDir bool
	// NeedsRedirect is true when the request named an existing directory
	// whose URL lacked a trailing slash; RedirectPath is request_path+"/".
	// No further resolution work (or filesystem read) happens in this case.
	NeedsRedirect bool
	RedirectPath  string
	// VHost is the virtual host directory name actually used (may be the
	// fallback FQDN).
	VHost string
}

// IsSafe reports whether a request path is free of traversal sequences, per
// spec §4.4 step 1 and the path-safety invariant of §3.
func IsSafe(reqPath string) bool {
	return !strings.Contains(reqPath, "..") &&
		!strings.Contains(reqPath, "/./") &&
		!strings.Contains(reqPath, "//")
}

// Resolve performs the §4.4 algorithm. fqdn is the default virtual host;
// requestHost is the Host the adapter parsed (may be empty); reqPath is the
// case-folded request path (always starting with "/"); defaultIndex is the
// protocol-specific index filename ("index.gmi" or "gopher.map").
func Resolve(fs afero.Fs, fqdn, requestHost, reqPath, defaultIndex string) (Result, error) {
	if !IsSafe(reqPath) {
		return Result{}, ErrTraversal
	}

	vhost := fqdn
	if requestHost != "" {
		if host, ok := strings.CutSuffix(requestHost, ".local"); ok && host != "" {
			vhost = host
		} else {
			vhost = requestHost
		}
	}

	fspath := "/" + vhost
	if ok, _ := afero.DirExists(fs, fspath); !ok {
		vhost = fqdn
		fspath = "/" + vhost
	}
	vhostEnd := len(fspath)

	if !strings.HasPrefix(reqPath, "/") {
		fspath += "/" + reqPath
	} else {
		fspath += reqPath
	}

	isDir, _ := afero.DirExists(fs, fspath)
	if isDir {
		if !strings.HasSuffix(reqPath, "/") {
			return Result{
				NeedsRedirect: true,
				RedirectPath:  reqPath + "/",
				VHost:         vhost,
			}, nil
		}
		dirEnd := len(fspath)
		fspath = filepath.Join(fspath, defaultIndex)
		return Result{
			FSPath:   fspath,
			VHostEnd: vhostEnd,
			DirEnd:   dirEnd,
			IsDir:    true,
			VHost:    vhost,
		}, nil
	}

	return Result{
		FSPath:   fspath,
		VHostEnd: vhostEnd,
		DirEnd:   0,
		IsDir:    false,
		VHost:    vhost,
	}, nil
}

// Basename returns the final path element of an FSPath.
func Basename(fspath string) string {
	return filepath.Base(fspath)
}

// Ext returns the extension of an FSPath's basename, without the leading
// dot.
func Ext(fspath string) string {
	return strings.TrimPrefix(filepath.Ext(fspath), ".")
}
