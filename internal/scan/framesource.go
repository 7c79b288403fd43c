package scan

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder for camera frames
	_ "image/png"  // register PNG decoder for camera frames
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"time"
)

// FrameStream delivers camera frames until closed.
type FrameStream interface {
	// Frame returns the next frame. After Close it returns an error.
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// FrameSource acquires a camera stream.
type FrameSource interface {
	Open(ctx context.Context) (FrameStream, error)
}

// MJPEGSource reads frames from a network camera publishing a
// multipart/x-mixed-replace MJPEG stream.
type MJPEGSource struct {
	URL    string
	Client *http.Client
}

// NewMJPEGSource creates a frame source for the given stream URL.
func NewMJPEGSource(url string) *MJPEGSource {
	return &MJPEGSource{
		URL:    url,
		Client: &http.Client{Timeout: 0}, // the stream is long-lived
	}
}

// Open connects to the camera. A 401/403 from the camera maps to
// ErrPermissionDenied.
func (s *MJPEGSource) Open(ctx context.Context) (FrameStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating stream request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to camera: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, fmt.Errorf("camera refused the stream (status %d): %w", resp.StatusCode, ErrPermissionDenied)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("camera stream error (status %d)", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("camera did not return an MJPEG stream (content-type %q)", resp.Header.Get("Content-Type"))
	}

	return &mjpegStream{
		body:   resp.Body,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

type mjpegStream struct {
	body   io.ReadCloser
	reader *multipart.Reader
}

func (m *mjpegStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	part, err := m.reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("reading stream part: %w", err)
	}
	defer part.Close()

	img, _, err := image.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	return img, nil
}

func (m *mjpegStream) Close() error {
	return m.body.Close()
}

// FrameClock paces the detection loop at frame-paint boundaries.
type FrameClock interface {
	Wait(ctx context.Context) error
}

// NewTickerClock returns a FrameClock that waits a fixed interval
// between detection cycles.
func NewTickerClock(interval time.Duration) FrameClock {
	return tickerClock{interval: interval}
}

// tickerClock waits a fixed interval between detection cycles.
type tickerClock struct {
	interval time.Duration
}

func (c tickerClock) Wait(ctx context.Context) error {
	t := time.NewTimer(c.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
