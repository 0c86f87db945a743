package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the v3 API of a Radarr or Sonarr instance.
type Client struct {
	baseURL    string
	apiKey     string
	kind       Kind
	httpClient *http.Client
}

// NewClient creates a client for the given kind. baseURL must not include
// the /api/v3 prefix.
func NewClient(baseURL, apiKey string, kind Kind, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		kind:       kind,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.Status, e.Body)
	}
	return fmt.Sprintf("%s %s failed with status %d", e.Method, e.Path, e.Status)
}

// do sends a request and decodes a JSON response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	endpoint := fmt.Sprintf("%s/api/v3/%s", c.baseURL, strings.TrimLeft(path, "/"))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", c.kind.Name(), err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// ListEntities fetches every movie or series.
func (c *Client) ListEntities(ctx context.Context) ([]Entity, error) {
	var docs []json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.kind.CollectionPath(), nil, &docs); err != nil {
		return nil, fmt.Errorf("failed to fetch %s list: %w", c.kind.Name(), err)
	}

	entities := make([]Entity, 0, len(docs))
	for i, raw := range docs {
		e, err := decodeEntity(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s #%d: %w", c.kind.Name(), i, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.do(ctx, http.MethodGet, "tag", nil, &tags); err != nil {
		return nil, fmt.Errorf("failed to fetch tags: %w", err)
	}
	return tags, nil
}

func (c *Client) CreateTag(ctx context.Context, label, color string) (Tag, error) {
	body, err := json.Marshal(Tag{Label: label, Color: color})
	if err != nil {
		return Tag{}, err
	}
	var created Tag
	if err := c.do(ctx, http.MethodPost, "tag", body, &created); err != nil {
		return Tag{}, fmt.Errorf("failed to create tag '%s': %w", label, err)
	}
	return created, nil
}

// FetchFiles returns the file records for e as defined by the client's kind.
func (c *Client) FetchFiles(ctx context.Context, e Entity) ([]FileRecord, error) {
	return c.kind.FetchFiles(ctx, c, e)
}

// UpdateEntity writes e back with its tags replaced by tagIDs.
func (c *Client) UpdateEntity(ctx context.Context, e Entity, tagIDs []int) error {
	body, err := c.kind.UpdatePayload(e, tagIDs)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("%s/%d", c.kind.CollectionPath(), e.ID)
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to update %s %d: %w", c.kind.Name(), e.ID, err)
	}
	return nil
}

// HealthCheck verifies the URL and API key by hitting the system status endpoint.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	if err := c.do(ctx, http.MethodGet, "system/status", nil, nil); err != nil {
		return false, err
	}
	return true, nil
}
