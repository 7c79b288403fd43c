package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the scan backend.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a backend client with a custom HTTP client
// for testing.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// SaveText submits a decoded or typed text with its origin tag.
func (c *Client) SaveText(ctx context.Context, text, source string) (*SaveResult, error) {
	body, err := json.Marshal(struct {
		Text   string `json:"text"`
		Source string `json:"source"`
	}{Text: text, Source: source})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/save_text", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result SaveResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("saving text: %w", err)
	}
	return &result, nil
}

// UploadScan posts an image to the backend's decoding endpoint. The
// source tag distinguishes uploads from camera and manual submissions.
func (c *Client) UploadScan(ctx context.Context, filename string, data []byte, contentType, source string) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/scan?source=%s", c.baseURL, url.QueryEscape(source))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("uploading image: %w", err)
	}
	return &result, nil
}

// ScanDetail fetches the structured record for a correlated scan.
func (c *Client) ScanDetail(ctx context.Context, scanID string) (*ScanDetail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scan/"+url.PathEscape(scanID), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var detail ScanDetail
	if err := c.do(req, &detail); err != nil {
		return nil, fmt.Errorf("fetching scan %s: %w", scanID, err)
	}
	return &detail, nil
}

// ListScans fetches the scan history, newest first. A non-empty query
// filters on the raw text.
func (c *Client) ListScans(ctx context.Context, limit int, query string) (*ScanList, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if query != "" {
		values.Set("q", query)
	}
	endpoint := c.baseURL + "/list"
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var list ScanList
	if err := c.do(req, &list); err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return &list, nil
}

// ExportCSV streams the backend's CSV export into w.
func (c *Client) ExportCSV(ctx context.Context, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/download", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("streaming export: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
