// Command multicap serves a single filesystem tree over Gemini, Spartan,
// Gopher, and HTTP/1.0 from one single-threaded process.
package main

import (
	"log"
	"os"

	"github.com/spf13/afero"

	"multicap/internal/clock"
	"multicap/internal/config"
	"multicap/internal/server"
)

const configPath = "/kore.cfg"

func main() {
	logger := log.New(os.Stderr, "", 0)

	fs := afero.NewOsFs()

	cfg, err := config.Load(fs, configPath)
	if err != nil {
		logger.Fatalf("Fatal error loading %s: %v", configPath, err)
	}
	logger.Printf("loaded config for %s (host %s)", cfg.FQDN, cfg.Host)

	if ok, _ := afero.DirExists(fs, "/"+cfg.FQDN); !ok {
		logger.Printf("WARN: virtual host root /%s does not exist", cfg.FQDN)
	}

	loc, err := clock.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Printf("WARN: unknown timezone %q, falling back to UTC: %v", cfg.Timezone, err)
		loc = nil
	}

	s := server.New(fs, cfg, clock.Real{Loc: loc}, logger)
	if err := s.Listen(); err != nil {
		logger.Fatalf("Fatal error starting listeners: %v", err)
	}
	logger.Fatal(s.Run())
}
