package origin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes bounds data-fetch responses buffered during a render.
const maxResponseBytes = 8 << 20 // 8 MiB

// Recorder receives payloads fetched during a server render so they can
// be serialized into the page and reused by the client without a second
// fetch. The key is the resolved absolute URL.
type Recorder interface {
	Record(url string, payload []byte)
}

// Client issues data-fetch calls on behalf of application code during a
// render. Relative paths are resolved through the origin context, and
// successful server-side responses are handed to the recorder.
type Client struct {
	octx Context
	hc   *http.Client
	rec  Recorder
}

// NewClient returns a data-fetch client for the given context. hc may be
// nil, in which case http.DefaultClient is used. rec may be nil when no
// transfer state is collected.
func NewClient(octx Context, hc *http.Client, rec Recorder) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{octx: octx, hc: hc, rec: rec}
}

// Origin returns the client's origin context.
func (c *Client) Origin() Context { return c.octx }

// Get fetches the given path, resolving it through the origin context.
// The request is bound to ctx, so a cancelled render aborts in-flight
// fetches.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	u, err := BuildURL(path, c.octx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("origin: build request for %s: %w", u, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("origin: fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("origin: fetch %s: unexpected status %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("origin: read %s: %w", u, err)
	}

	if c.rec != nil && c.octx.IsServer {
		c.rec.Record(u, body)
	}
	return body, nil
}

// GetJSON fetches the given path and decodes the response into v.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("origin: decode %s: %w", path, err)
	}
	return nil
}
