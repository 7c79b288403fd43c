// Package upload feeds the submission pipeline from a user-chosen
// image file instead of a live camera frame.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"qrclient/internal/scan"
	"qrclient/internal/submit"
)

// ErrNoFile is the precondition fault for an upload without a chosen
// file. It is reported to the user, never sent to the backend.
var ErrNoFile = errors.New("no image file selected")

// Notifier surfaces user-visible messages.
type Notifier interface {
	Notify(msg string)
}

// DetailFetcher renders the structured record for a saved scan.
// *submit.Pipeline satisfies it.
type DetailFetcher interface {
	RenderDetail(ctx context.Context, scanID string) error
}

// Uploader posts an image file to the backend's decoding endpoint and
// routes the result through the same rendering path as camera scans.
type Uploader struct {
	client   *submit.Client
	renderer submit.Renderer
	detail   DetailFetcher
	notifier Notifier
}

// NewUploader creates an Uploader.
func NewUploader(client *submit.Client, renderer submit.Renderer, detail DetailFetcher, notifier Notifier) *Uploader {
	return &Uploader{
		client:   client,
		renderer: renderer,
		detail:   detail,
		notifier: notifier,
	}
}

// Upload reads, normalizes and posts one image file. A response with
// zero decoded items is a normal outcome, not an error.
func (u *Uploader) Upload(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		u.notifier.Notify("Choose an image file first.")
		return ErrNoFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		u.notifier.Notify("Could not read the selected file.")
		return fmt.Errorf("reading image file: %w", err)
	}

	contentType := sniffContentType(path, data)
	normalized, finalType, err := normalizeImage(data, contentType)
	if err != nil {
		u.notifier.Notify("The selected file is not a supported image.")
		return fmt.Errorf("preparing upload: %w", err)
	}

	result, err := u.client.UploadScan(ctx, filepath.Base(path), normalized, finalType, scan.OriginUpload.SourceTag())
	if err != nil {
		slog.Error("image upload failed", "file", path, "error", err)
		u.notifier.Notify("Could not reach the server. Try again.")
		return fmt.Errorf("uploading image: %w", err)
	}

	if len(result.Items) == 0 {
		u.notifier.Notify("No QR code was found in the image.")
		return nil
	}

	first := result.Items[0]
	u.renderer.ShowScanned(first.Text)
	if first.ScanID == "" {
		return nil
	}
	return u.detail.RenderDetail(ctx, first.ScanID)
}
