// Package content fetches built deck files from the server.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the server has no such file, which for slides
// means the index is past the end of the deck.
var ErrNotFound = errors.New("not found")

// maxBody bounds a single slide or notes document.
const maxBody = 4 << 20

// Client communicates with the deck's static file endpoints.
type Client struct {
	baseURL    string
	locale     string
	httpClient *http.Client
}

func NewClient(baseURL, locale string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		locale:  strings.Trim(locale, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SlideURL is the address of slide n.
func (c *Client) SlideURL(n int) string {
	return c.prefix() + "/slides/" + strconv.Itoa(n) + ".html"
}

// NotesURL is the address of the notes document.
func (c *Client) NotesURL() string {
	return c.prefix() + "/notes.html"
}

func (c *Client) prefix() string {
	if c.locale == "" {
		return c.baseURL
	}
	return c.baseURL + "/" + url.PathEscape(c.locale)
}

// FetchSlide retrieves the HTML fragment for slide n.
func (c *Client) FetchSlide(ctx context.Context, n int) (string, error) {
	body, err := c.get(ctx, c.SlideURL(n))
	if err != nil {
		return "", fmt.Errorf("fetch slide %d: %w", n, err)
	}
	return body, nil
}

// FetchNotes retrieves the notes document.
func (c *Client) FetchNotes(ctx context.Context) (string, error) {
	body, err := c.get(ctx, c.NotesURL())
	if err != nil {
		return "", fmt.Errorf("fetch notes: %w", err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, u string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
