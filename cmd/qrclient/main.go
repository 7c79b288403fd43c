package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"qrclient/internal/scan"
	"qrclient/internal/submit"
	"qrclient/internal/upload"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// consoleNotifier prints user-facing messages to stderr, away from the
// rendered output on stdout.
type consoleNotifier struct{}

func (consoleNotifier) Notify(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

func main() {
	fs := ff.NewFlagSet("qrclient")
	var (
		backendURL  = fs.StringLong("backend", "http://localhost:8000", "Backend base URL")
		cameraURL   = fs.StringLong("camera", "http://localhost:8081/stream", "MJPEG camera stream URL")
		uploadPath  = fs.StringLong("upload", "", "Upload an image file instead of scanning")
		manualText  = fs.StringLong("text", "", "Submit a typed text instead of scanning")
		listLimit   = fs.IntLong("list", 0, "List the last N scans and exit")
		listQuery   = fs.StringLong("query", "", "Filter the scan listing")
		csvPath     = fs.StringLong("csv", "", "Export the scan history as CSV to this file")
		framePeriod = fs.DurationLong("frame-period", 33*time.Millisecond, "Delay between detection cycles")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("QRCLIENT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx := context.Background()
	notifier := consoleNotifier{}
	client := submit.NewClient(*backendURL)
	renderer := submit.NewTableRenderer(os.Stdout)
	pipeline := submit.NewPipeline(client, renderer, notifier)

	switch {
	case *uploadPath != "":
		uploader := upload.NewUploader(client, renderer, pipeline, notifier)
		if err := uploader.Upload(ctx, *uploadPath); err != nil {
			os.Exit(1)
		}

	case *manualText != "":
		code := scan.DetectedCode{
			RawText:    *manualText,
			AcquiredAt: time.Now(),
			Origin:     scan.OriginManual,
		}
		if err := pipeline.Submit(ctx, code); err != nil {
			os.Exit(1)
		}

	case *listLimit > 0:
		list, err := client.ListScans(ctx, *listLimit, *listQuery)
		if err != nil {
			slog.Error("Failed to list scans", "error", err)
			os.Exit(1)
		}
		renderer.ShowHistory(list)

	case *csvPath != "":
		f, err := os.Create(*csvPath)
		if err != nil {
			slog.Error("Failed to create export file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := client.ExportCSV(ctx, f); err != nil {
			slog.Error("Failed to export scans", "error", err)
			os.Exit(1)
		}
		slog.Info("Scan history exported", "file", *csvPath)

	default:
		runScan(ctx, *cameraURL, *framePeriod, pipeline, notifier)
	}
}

// runScan drives one live camera session: scan until a code is
// detected and submitted, or until interrupted.
func runScan(ctx context.Context, cameraURL string, framePeriod time.Duration, pipeline *submit.Pipeline, notifier scan.Notifier) {
	source := scan.NewMJPEGSource(cameraURL)
	detector := scan.NewZXingDetector()
	controller := scan.NewControllerWithClock(source, detector, pipeline, notifier, scan.NewTickerClock(framePeriod))

	if err := controller.Start(ctx); err != nil {
		os.Exit(1)
	}
	slog.Info("Scanning...", "camera", cameraURL)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Stopping scan...")
		controller.Stop()
	}()

	controller.Wait()
}
