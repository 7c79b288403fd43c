package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"qrclient/internal/offline"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("offline-proxy")
	var (
		listenAddr  = fs.StringLong("listen", ":8090", "Address to serve on")
		originURL   = fs.StringLong("origin", "http://localhost:8000", "Backend origin to cache from and proxy to")
		cachePath   = fs.StringLong("cache", "offline-cache.db", "Cache database file path")
		generation  = fs.StringLong("generation", "qr-cache-v1", "Cache generation label")
		assetsFlag  = fs.StringLong("assets", "", "Comma-separated asset paths overriding the default manifest")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("OFFLINE_PROXY"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	origin, err := url.Parse(*originURL)
	if err != nil || origin.Host == "" {
		slog.Error("Invalid origin URL", "origin", *originURL, "error", err)
		os.Exit(1)
	}

	slog.Info("Opening cache...", "path", *cachePath)
	store, err := offline.NewStore(*cachePath, *originURL)
	if err != nil {
		slog.Error("Failed to open cache", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	manifest := offline.DefaultManifest(*generation)
	if *assetsFlag != "" {
		manifest.Assets = strings.Split(*assetsFlag, ",")
	}

	// Install the new generation; on failure the previous generation
	// (if any) stays active and is served instead.
	current := *generation
	slog.Info("Installing cache generation...", "generation", current, "assets", len(manifest.Assets))
	if err := store.Install(context.Background(), manifest); err != nil {
		slog.Error("Cache install failed", "generation", current, "error", err)
		generations, genErr := store.Generations()
		if genErr != nil || len(generations) == 0 {
			slog.Error("No previous generation to fall back to")
			os.Exit(1)
		}
		current = generations[len(generations)-1]
		slog.Warn("Serving previous generation", "generation", current)
	} else {
		purged, err := store.Activate(current)
		if err != nil {
			slog.Error("Cache activation failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Cache generation active", "generation", current, "purged", purged)
	}

	worker := offline.NewWorker(store, current, origin)

	go func() {
		slog.Info("Offline proxy started", "address", *listenAddr, "origin", *originURL)
		if err := http.ListenAndServe(*listenAddr, worker); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
