// Package server implements the single-threaded, cooperative polling loop
// of spec §5: it owns the (up to five) listeners, accepts at most one new
// connection per listener per pass in the fixed order authenticated
// Gemini, unauthenticated Gemini, Spartan, Gopher, HTTP, and fully
// services each connection before moving on — no goroutine per connection.
package server

import (
	"bufio"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log"
	"net"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"multicap/internal/clock"
	"multicap/internal/config"
	"multicap/internal/content"
	"multicap/internal/proto"
	"multicap/internal/request"
	"multicap/internal/resolve"
	"multicap/internal/respond"
	"multicap/internal/status"
)

// bufferCapacity is the process-wide line/body buffer size of spec §5
// ("the process-wide line buffer (1028 bytes) is reused across requests").
const bufferCapacity = 1028

// connTimeout is the single per-connection deadline of spec §5.
const connTimeout = 5 * time.Second

// pollInterval bounds how long a single listener's Accept is allowed to
// block before the loop moves on to poll the next one.
const pollInterval = 25 * time.Millisecond

const (
	scratchTitan = "/~titan~.tmp"
	fortunesDir  = "/fortunes"
)

// Kind identifies which of the five listeners a connection arrived on.
type Kind int

const (
	KindAuthGemini Kind = iota
	KindGemini
	KindSpartan
	KindGopher
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindAuthGemini:
		return "gemini-auth"
	case KindGemini:
		return "gemini"
	case KindSpartan:
		return "spartan"
	case KindGopher:
		return "gopher"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

func (k Kind) proto() status.Proto {
	switch k {
	case KindAuthGemini, KindGemini:
		return status.Gemini
	case KindSpartan:
		return status.Spartan
	case KindGopher:
		return status.Gopher
	default:
		return status.HTTP
	}
}

func (k Kind) defaultIndex() string {
	if k == KindGopher {
		return proto.DefaultIndexGopher
	}
	return proto.DefaultIndexGemini
}

// entry pairs a bound, pollable TCP listener with the dialect it serves.
// tlsConf is non-nil for the two Gemini listeners; every accepted
// connection on those is individually wrapped with tls.Server rather than
// using tls.Listen, so the raw *net.TCPListener stays pollable with
// SetDeadline.
type entry struct {
	kind    Kind
	tcp     *net.TCPListener
	tlsConf *tls.Config
}

// Server owns the listener set and the collaborators every serviced
// connection needs: the filesystem, configuration, clock, and logger.
type Server struct {
	FS     afero.Fs
	Cfg    *config.Config
	Clock  clock.Clock
	Logger *log.Logger

	listeners []entry
}

// New builds a Server. fs is the content filesystem (also where /ssl/...
// TLS material and /kore.cfg are read from); cfg is the already-loaded
// configuration; clk supplies the time used for logging and content
// generation; logger receives startup diagnostics, per-accept warnings,
// and the access log.
func New(fs afero.Fs, cfg *config.Config, clk clock.Clock, logger *log.Logger) *Server {
	return &Server{FS: fs, Cfg: cfg, Clock: clk, Logger: logger}
}

// Listen binds the fixed-port listener set of spec §6, skipping any whose
// prerequisites aren't met and logging a startup warning instead of
// failing outright — a single bad listener never prevents the others from
// starting.
func (s *Server) Listen() error {
	geminiConf, authConf := s.loadTLSConfigs()

	specs := []struct {
		kind    Kind
		port    string
		tlsConf *tls.Config
		skip    bool
	}{
		{KindAuthGemini, "1969", authConf, authConf == nil},
		{KindGemini, "1965", geminiConf, geminiConf == nil},
		{KindSpartan, "300", nil, false},
		{KindGopher, "70", nil, false},
		{KindHTTP, "80", nil, false},
	}

	for _, sp := range specs {
		if sp.skip {
			continue
		}
		ln, err := net.Listen("tcp", ":"+sp.port)
		if err != nil {
			s.Logger.Printf("WARN: %s listener on :%s disabled: %v", sp.kind, sp.port, err)
			continue
		}
		tcpLn, ok := ln.(*net.TCPListener)
		if !ok {
			s.Logger.Printf("WARN: %s listener on :%s disabled: not a TCP listener", sp.kind, sp.port)
			ln.Close()
			continue
		}
		s.listeners = append(s.listeners, entry{kind: sp.kind, tcp: tcpLn, tlsConf: sp.tlsConf})
		s.Logger.Printf("starting %s listener on :%s (auth=%v)", sp.kind, sp.port, sp.kind == KindAuthGemini)
	}
	return nil
}

// loadTLSConfigs reads the fixed TLS material paths of spec §6. A missing
// cert or key disables both Gemini listeners; a missing CA disables only
// the authenticated one.
func (s *Server) loadTLSConfigs() (gemini, auth *tls.Config) {
	certPEM, certErr := afero.ReadFile(s.FS, "/ssl/srv-cert.pem")
	keyPEM, keyErr := afero.ReadFile(s.FS, "/ssl/srv-key.pem")
	if certErr != nil || keyErr != nil {
		s.Logger.Printf("WARN: missing /ssl/srv-cert.pem or /ssl/srv-key.pem, Gemini listeners disabled")
		return nil, nil
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		s.Logger.Printf("WARN: invalid TLS material, Gemini listeners disabled: %v", err)
		return nil, nil
	}

	gemini = &tls.Config{Certificates: []tls.Certificate{cert}}

	caPEM, caErr := afero.ReadFile(s.FS, "/ssl/ca-cert.pem")
	if caErr != nil {
		s.Logger.Printf("WARN: missing /ssl/ca-cert.pem, authenticated Gemini listener disabled")
		return gemini, nil
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		s.Logger.Printf("WARN: unreadable /ssl/ca-cert.pem, authenticated Gemini listener disabled")
		return gemini, nil
	}
	auth = &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
	}
	return gemini, auth
}

// Run executes the polling loop of spec §5 forever. It never returns under
// normal operation; callers run it on the main goroutine.
func (s *Server) Run() error {
	if len(s.listeners) == 0 {
		return errors.New("server: no listeners active")
	}
	for {
		for _, e := range s.listeners {
			s.pollOnce(e)
		}
	}
}

// pollOnce accepts at most one pending connection on e and, if one is
// waiting, services it fully before returning.
func (s *Server) pollOnce(e entry) {
	e.tcp.SetDeadline(time.Now().Add(pollInterval))
	conn, err := e.tcp.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return
		}
		s.Logger.Printf("WARN: %s accept: %v", e.kind, err)
		return
	}
	s.HandleConnection(e.kind, conn, e.tlsConf)
}

// HandleConnection fully services one already-accepted connection: parses
// its request, resolves and dispatches it, writes the response, and emits
// the access log line. tlsConf, if non-nil, upgrades conn with a server
// TLS handshake before anything else happens. Exported so protocol-adapter
// wiring can be exercised directly with net.Pipe in tests, without a real
// listener.
func (s *Server) HandleConnection(kind Kind, conn net.Conn, tlsConf *tls.Config) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Printf("WARN: recovered from panic servicing %s connection: %v", kind, r)
		}
	}()

	conn.SetDeadline(time.Now().Add(connTimeout))

	if tlsConf != nil {
		tlsConn := tls.Server(conn, tlsConf)
		if err := tlsConn.Handshake(); err != nil {
			s.Logger.Printf("WARN: %s TLS handshake: %v", kind, err)
			return
		}
		conn = tlsConn
	}

	peerIP := peerAddr(conn)
	authMarker := "-"
	if kind == KindAuthGemini {
		authMarker = "a"
	}

	br := bufio.NewReaderSize(conn, bufferCapacity)
	now := s.Clock.Now()

	var req request.Request
	var perr *proto.Error
	switch kind {
	case KindAuthGemini, KindGemini:
		req, perr = proto.ParseGemini(br, kind == KindAuthGemini)
	case KindSpartan:
		req, perr = proto.ParseSpartan(br, bufferCapacity)
	case KindGopher:
		req, perr = proto.ParseGopher(br)
	case KindHTTP:
		req, perr = proto.ParseHTTP(br)
	}
	if perr != nil {
		code := respond.SendHeader(conn, kind.proto(), perr.Status, perr.Text, s.Cfg.FQDN)
		s.logAccess(peerIP, authMarker, now, req.Raw, code, 0)
		return
	}

	if req.Titan != nil {
		s.handleTitan(conn, br, peerIP, authMarker, now, req)
		return
	}

	resolved, err := resolve.Resolve(s.FS, s.Cfg.FQDN, req.Host, req.Path, kind.defaultIndex())
	if err != nil {
		code := respond.SendHeader(conn, req.Proto, status.INVALID, "Bad request", s.Cfg.FQDN)
		s.logAccess(peerIP, authMarker, now, req.Raw, code, 0)
		return
	}
	if resolved.NeedsRedirect {
		code := respond.SendHeader(conn, req.Proto, status.MOVED, resolved.RedirectPath, s.Cfg.FQDN)
		s.logAccess(peerIP, authMarker, now, req.Raw, code, 0)
		return
	}

	in := content.Input{
		FS:          s.FS,
		MimeTable:   s.Cfg.MimeTable,
		FQDN:        s.Cfg.FQDN,
		Host:        resolved.VHost,
		TitanToken:  s.Cfg.TitanToken,
		FortunesDir: fortunesDir,
		Now:         now,
		Req:         req,
		Resolved:    resolved,
	}
	resp := content.Dispatch(in)
	code := respond.SendHeader(conn, req.Proto, resp.Status, resp.Meta, s.Cfg.FQDN)
	bytesSent := 0
	if len(resp.Body) > 0 {
		n, _ := conn.Write(resp.Body)
		bytesSent += n
		if req.Proto == status.Gopher && resp.Menu {
			m, _ := conn.Write([]byte(".\r\n"))
			bytesSent += m
		}
	}
	s.logAccess(peerIP, authMarker, now, req.Raw, code, bytesSent)
}

// handleTitan implements the Titan receive-validate-archive-rename flow of
// spec §4.11; it isn't folded into content.Dispatch because receiving the
// upload body requires the connection's own buffered reader.
func (s *Server) handleTitan(conn net.Conn, br *bufio.Reader, peerIP, authMarker string, now time.Time, req request.Request) {
	t := req.Titan
	fail := func(text string) {
		code := respond.SendHeader(conn, status.Gemini, status.INVALID, text, s.Cfg.FQDN)
		s.logAccess(peerIP, authMarker, now, req.Raw, code, 0)
	}

	if s.Cfg.TitanToken != "" {
		n := len(s.Cfg.TitanToken)
		if len(t.Token) < n || t.Token[:n] != s.Cfg.TitanToken {
			fail("Invalid token")
			return
		}
	}

	body, perr := proto.ReceiveTitanBody(br, t.Size, bufferCapacity)
	if perr != nil {
		fail(perr.Text)
		return
	}

	resolved, rerr := resolve.Resolve(s.FS, s.Cfg.FQDN, req.Host, req.Path, proto.DefaultIndexGemini)
	if rerr != nil || resolved.NeedsRedirect || resolved.IsDir {
		fail("Invalid payload size")
		return
	}
	dest := resolved.FSPath

	if err := s.FS.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		fail("Error reading payload")
		return
	}
	if err := content.Archive(s.FS, dest, now); err != nil {
		fail("Error reading payload")
		return
	}
	if err := afero.WriteFile(s.FS, scratchTitan, body, 0644); err != nil {
		fail("Error reading payload")
		return
	}
	if err := content.ReplaceAtomically(s.FS, scratchTitan, dest); err != nil {
		fail("Error reading payload")
		return
	}

	meta := "gemini://" + req.Host + req.Path
	code := respond.SendHeader(conn, status.Gemini, status.REDIR, meta, s.Cfg.FQDN)
	s.logAccess(peerIP, authMarker, now, req.Raw, code, 0)
}

// logAccess writes one line in the exact shape of spec §4.13.
func (s *Server) logAccess(peerIP, authMarker string, now time.Time, raw string, code, bytesSent int) {
	s.Logger.Printf("LOG: %s - %s - %s %q %d %d", peerIP, authMarker, clock.AccessLogFormat(now), raw, code, bytesSent)
}

func peerAddr(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
