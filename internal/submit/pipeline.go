package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"qrclient/internal/scan"
)

// ErrEmptyText is the precondition fault for a submission whose text
// is empty after trimming. It is rejected before any network call.
var ErrEmptyText = errors.New("text is empty after trimming")

// Notifier surfaces user-visible messages.
type Notifier interface {
	Notify(msg string)
}

// Renderer presents the scanned value and the structured detail view.
// ShowDetail replaces the whole view; it is never patched in place.
type Renderer interface {
	ShowScanned(text string)
	ShowDetail(detail *ScanDetail)
}

// Pipeline turns a detected code into a backend submission and, when
// the backend correlates a record, into a rendered detail view.
type Pipeline struct {
	client   *Client
	renderer Renderer
	notifier Notifier
}

// NewPipeline creates a submission pipeline.
func NewPipeline(client *Client, renderer Renderer, notifier Notifier) *Pipeline {
	return &Pipeline{
		client:   client,
		renderer: renderer,
		notifier: notifier,
	}
}

// Submit normalizes and saves one detected code. Network failures are
// logged and surfaced as a message; the returned error lets callers
// log, but the user can always retry.
func (p *Pipeline) Submit(ctx context.Context, code scan.DetectedCode) error {
	text := strings.TrimSpace(code.RawText)
	if text == "" {
		p.notifier.Notify("Nothing to submit: the decoded text is empty.")
		return ErrEmptyText
	}

	p.renderer.ShowScanned(text)

	result, err := p.client.SaveText(ctx, text, code.Origin.SourceTag())
	if err != nil {
		slog.Error("saving scan text", "origin", code.Origin, "error", err)
		p.notifier.Notify("Could not reach the server. The scan was not saved; try again.")
		return fmt.Errorf("submitting text: %w", err)
	}

	if result.ScanID == "" {
		// The backend stored the raw text but has no structured record.
		return nil
	}
	return p.RenderDetail(ctx, result.ScanID)
}

// RenderDetail fetches the structured record for a scan and replaces
// the detail view with it. Shared by the camera and upload paths.
func (p *Pipeline) RenderDetail(ctx context.Context, scanID string) error {
	detail, err := p.client.ScanDetail(ctx, scanID)
	if err != nil {
		slog.Error("fetching scan detail", "scan_id", scanID, "error", err)
		p.notifier.Notify("Saved, but the receipt details could not be loaded.")
		return fmt.Errorf("rendering detail: %w", err)
	}
	p.renderer.ShowDetail(detail)
	return nil
}
