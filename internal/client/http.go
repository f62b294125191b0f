package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roomchat/chat-tui/internal/i18n"
	"github.com/roomchat/chat-tui/internal/protocol"
)

// HistoryPath is the room history endpoint relative to the HTTP base.
const HistoryPath = "/api/chat/messages"

// CatalogPrefix is where translation catalogs are served.
const CatalogPrefix = "/i18n/"

// HTTPClient makes REST calls to the chat server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g.
// "http://localhost:8080"). Per-call deadlines come from the context.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL returns the base URL requests are made against.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// GetHistory fetches the room's prior messages in transport order (newest
// first).
func (c *HTTPClient) GetHistory(ctx context.Context) ([]protocol.ChatMessage, error) {
	data, err := c.get(ctx, HistoryPath)
	if err != nil {
		return nil, err
	}
	return protocol.ParseBatch(data)
}

// LoadCatalog fetches the key→template table of locale.
func (c *HTTPClient) LoadCatalog(ctx context.Context, locale string) (map[string]string, error) {
	data, err := c.get(ctx, CatalogPrefix+url.PathEscape(i18n.CatalogFile(locale)))
	if err != nil {
		return nil, err
	}
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", locale, err)
	}
	return out, nil
}

// CatalogLoader adapts LoadCatalog to an i18n.Loader.
func (c *HTTPClient) CatalogLoader() i18n.Loader {
	return i18n.LoaderFunc(c.LoadCatalog)
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

// DeriveHTTPBase converts ws://host:port/chat → http://host:port.
func DeriveHTTPBase(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil || u.Host == "" {
		return "http://localhost:8080"
	}
	scheme := "http"
	if strings.HasPrefix(u.Scheme, "wss") || u.Scheme == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}
