// main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/campusgig/gigcore/internal/app"
	"github.com/campusgig/gigcore/internal/config"
	"github.com/campusgig/gigcore/internal/logbuf"
)

var (
	dirFlag  = flag.String("dir", ".", "Data directory (config, token file)")
	cfgFlag  = flag.String("config", "", "Config file path (default <dir>/config.json)")
	showHelp = flag.Bool("h", false, "Show help")
	version  = flag.Bool("version", false, "Show version")
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("gigcore v%s\n", appVersion)
		return
	}
	if *showHelp {
		showUsage()
		return
	}

	// Local overrides (GIGCORE_TOKEN and friends); missing file is fine.
	_ = godotenv.Load()

	baseDir, err := filepath.Abs(*dirFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -dir: %v\n", err)
		os.Exit(1)
	}

	cfgPath := *cfgFlag
	if cfgPath == "" {
		cfgPath = filepath.Join(baseDir, "config.json")
	}

	cfg, created, err := config.Ensure(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("Created default config at %s. Add your session token and run again.\n", cfgPath)
		return
	}

	// Keep recent log lines in memory for the `logs` console command while
	// still writing them to stderr.
	logs := logbuf.New(800)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Printf("MAIN: shutdown signal received")
		cancel()
	}()

	// Reload config on file change. Connection-level settings need a
	// restart; the watcher just surfaces that fact.
	watcher, err := config.Watch(cfgPath, func(config.Config) {
		log.Printf("MAIN: config changed on disk, restart to apply")
	})
	if err != nil {
		log.Printf("MAIN: config watcher unavailable: %v", err)
	} else {
		defer watcher.Close()
	}

	client, err := app.New(app.Options{BaseDir: baseDir, Cfg: cfg, Logs: logs})
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	client.Start(ctx)

	if err := runConsole(ctx, client, logs); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Printf(`gigcore v%s - CampusGig chat and call client

Usage:
  gigcore [flags]

Flags:
  -dir <path>      Data directory (default ".")
  -config <path>   Config file (default <dir>/config.json)
  -version         Show version
  -h               Show help

The session token comes from the GIGCORE_TOKEN environment variable, the
identity.token config field, or the identity.token_file path, in that order.
`, appVersion)
}
