// Package config parses /kore.cfg (spec §6) into the process-wide
// configuration.
//
// The grammar — ordered, repeatable key=value lines with a handful of
// recognized keys — doesn't fit a flattened key-store library like viper
// (one value per key, no preserved duplicate order); see DESIGN.md. The
// loader is a small bufio.Scanner state machine in the style of the
// teacher's own line-oriented parsing.
package config

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	gopher "github.com/stryan/go-gopher"

	"multicap/internal/mimetable"
)

// WifiAP is one configured wifi= access point entry.
type WifiAP struct {
	SSID     string
	Password string
}

// Config is the immutable, process-wide configuration (spec §3).
type Config struct {
	Host        string // short hostname, before the first dot of FQDN
	FQDN        string
	TitanToken  string
	DDNSToken   string
	Timezone    string
	MDNSEnabled bool
	WifiAPs     []WifiAP
	MimeTable   *mimetable.Table
}

// Load reads and parses a kore.cfg-format file from fs at path.
func Load(fs afero.Fs, path string) (*Config, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var (
		fqdn       string
		titan      string
		ddns       string
		tz         string
		mdnsRaw    string
		mdnsSeen   bool
		wifiAPs    []WifiAP
		mimeEnts   []mimetable.Entry
	)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, ok := splitKV(trimmed)
		if !ok {
			continue
		}
		switch key {
		case "hostname":
			fqdn = value
		case "titan":
			titan = value
		case "ddns":
			ddns = value
		case "tz":
			tz = value
		case "mdns":
			mdnsRaw = value
			mdnsSeen = true
		case "wifi":
			ap, err := parseWifi(value)
			if err != nil {
				return nil, fmt.Errorf("config: wifi=%s: %w", value, err)
			}
			wifiAPs = append(wifiAPs, ap)
		case "mime":
			ent, err := parseMime(value)
			if err != nil {
				return nil, fmt.Errorf("config: mime=%s: %w", value, err)
			}
			mimeEnts = append(mimeEnts, ent)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	mdns := true
	if mdnsSeen {
		mdns = isTruthy(mdnsRaw)
	}

	return &Config{
		Host:        hostOf(fqdn),
		FQDN:        fqdn,
		TitanToken:  titan,
		DDNSToken:   ddns,
		Timezone:    tz,
		MDNSEnabled: mdns,
		WifiAPs:     wifiAPs,
		MimeTable:   mimetable.New(mimeEnts),
	}, nil
}

// splitKV splits a line at its first '=', trimming both sides. A line with
// no '=' is not a valid key=value pair.
func splitKV(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, '=')
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

func parseWifi(value string) (WifiAP, error) {
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return WifiAP{}, fmt.Errorf("expected ssid,password")
	}
	return WifiAP{SSID: parts[0], Password: parts[1]}, nil
}

func parseMime(value string) (mimetable.Entry, error) {
	parts := strings.SplitN(value, ",", 3)
	if len(parts) != 3 {
		return mimetable.Entry{}, fmt.Errorf("expected ext,gopher_char,mime_type")
	}
	if len(parts[1]) == 0 {
		return mimetable.Entry{}, fmt.Errorf("empty gopher_char")
	}
	return mimetable.Entry{
		Ext:        parts[0],
		GopherType: gopher.ItemType(parts[1][0]),
		MIME:       parts[2],
	}, nil
}

// isTruthy implements spec §6's mdns grammar: truthy unless the value
// starts with 'n', 'N', or '0'.
func isTruthy(v string) bool {
	if v == "" {
		return true
	}
	switch v[0] {
	case 'n', 'N', '0':
		return false
	default:
		return true
	}
}

func hostOf(fqdn string) string {
	if i := strings.IndexByte(fqdn, '.'); i >= 0 {
		return fqdn[:i]
	}
	return fqdn
}
