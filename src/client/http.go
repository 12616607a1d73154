package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/search"
)

// DefaultTimeout is the default HTTP request timeout
const DefaultTimeout = 10 * time.Second

const apiPath = "/api/v1"

// HTTPClient queries a weatherio server
type HTTPClient struct {
	Server     string
	HTTPClient *http.Client
}

// NewHTTPClient creates a client for the configured server
func NewHTTPClient(config *CLIConfig) *HTTPClient {
	return &HTTPClient{
		Server: strings.TrimRight(config.Server, "/"),
		HTTPClient: &http.Client{
			Timeout: config.RequestTimeout(),
		},
	}
}

// UserAgent returns the User-Agent string
func UserAgent() string {
	return fmt.Sprintf("%s-cli/%s", projectName, Version)
}

// Weather returns the server's terminal rendering, or its JSON document
// indented for reading
func (c *HTTPClient) Weather(ctx context.Context, coords models.Coordinates, format string) (string, error) {
	query := url.Values{}
	query.Set("lat", coords.LatParam())
	query.Set("lon", coords.LonParam())

	if format == FormatJSON {
		body, err := c.get(ctx, apiPath+"/weather?"+query.Encode(), "application/json")
		if err != nil {
			return "", err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, body, "", "  "); err != nil {
			return "", NewAPIError(fmt.Sprintf("failed to decode response: %v", err))
		}
		return out.String(), nil
	}

	body, err := c.get(ctx, apiPath+"/weather.txt?"+query.Encode(), "text/plain")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(body), "\n"), nil
}

// Search returns the locations matching query
func (c *HTTPClient) Search(ctx context.Context, query string) ([]search.Result, error) {
	body, err := c.get(ctx, apiPath+"/search?q="+url.QueryEscape(query), "application/json")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []search.Result `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewAPIError(fmt.Sprintf("failed to decode response: %v", err))
	}
	return resp.Results, nil
}

func (c *HTTPClient) get(ctx context.Context, path, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Server+path, nil)
	if err != nil {
		return nil, NewConnectionError(fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("User-Agent", UserAgent())
	req.Header.Set("Accept", accept)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewConnectionError(fmt.Sprintf("failed to connect to %s: %v", c.Server, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, NewConnectionError(fmt.Sprintf("failed to read response: %v", err))
	}
	if resp.StatusCode >= 400 {
		return nil, responseError(resp.StatusCode, body)
	}
	return body, nil
}

// responseError maps an error response to an exit code
func responseError(status int, body []byte) *ExitError {
	message := strings.TrimSpace(string(body))

	// JSON envelope {"error": ..., "code": ...}
	var errorResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error != "" {
		message = errorResp.Error
	} else if _, text, ok := strings.Cut(message, ": "); ok {
		// text form "CODE: message"
		message = text
	}
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusNotFound:
		return NewNotFoundError(message)
	case status == http.StatusBadRequest:
		return NewUsageError(message)
	case status == http.StatusBadGateway:
		return NewUnavailableError(message)
	default:
		return NewAPIError(fmt.Sprintf("server error (%d): %s", status, message))
	}
}
