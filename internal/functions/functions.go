// Package functions invokes the hosted edge functions that do the heavy
// lifting remotely (scraping, story generation, image rendering). Every
// function is a POST under one base URL, authorized with the service key.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	serviceKey string
	hc         *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the function gateway. If httpClient is nil,
// a default with the given timeout is used.
func NewClient(baseURL, serviceKey string, timeout time.Duration, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		hc:         httpClient,
		logger:     logger,
	}
}

// Result is the loosely typed envelope functions reply with. Functions are
// deployed independently of this service, so parsing stays defensive: missing
// fields get sane defaults instead of failing the call.
type Result struct {
	Success bool
	Message string
	Data    map[string]any
	Raw     []byte

	// Usage metering, when the function reports it.
	TokensUsed int64
	CostUSD    float64
}

// Invoke POSTs payload to the named function and parses the response.
// A non-2xx status is an error; a 2xx with {"success": false} is not, so
// callers can read the failure message from the Result.
func (c *Client) Invoke(ctx context.Context, name string, payload any) (*Result, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("function %s: marshal request: %w", name, err)
	}

	url := c.baseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("function %s: new request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	lat := time.Since(start)
	if err != nil {
		c.logger.Warn("function call failed", "name", name, "latency", lat, "err", err)
		return nil, fmt.Errorf("function %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	c.logger.Debug("function call", "name", name, "status", resp.StatusCode, "latency", lat)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("function %s: status=%d body=%s", name, resp.StatusCode, truncate(body, 512))
	}

	return parseResult(body), nil
}

// parseResult extracts the common envelope fields. Functions are not fully
// consistent about their shapes, so this accepts several:
//
//	{"success": true, "message": "...", "data": {...}}
//	{"success": false, "error": "..."}
//	{"articlesFound": 3, ...}          (bare data, success implied)
//	plain text                          (success implied, text as message)
func parseResult(body []byte) *Result {
	res := &Result{Success: true, Raw: body}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		res.Message = string(bytes.TrimSpace(body))
		return res
	}

	m, ok := parsed.(map[string]any)
	if !ok {
		return res
	}

	if v, ok := m["success"].(bool); ok {
		res.Success = v
	}
	if v, ok := m["message"].(string); ok && v != "" {
		res.Message = v
	}
	if v, ok := m["error"].(string); ok && v != "" {
		res.Message = v
		res.Success = false
	}

	if v, ok := m["data"].(map[string]any); ok {
		res.Data = v
	} else {
		res.Data = m
	}

	if v, ok := numField(res.Data, "tokensUsed"); ok {
		res.TokensUsed = int64(v)
	}
	if v, ok := numField(res.Data, "costUsd"); ok {
		res.CostUSD = v
	}

	return res
}

func numField(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key].(float64)
	return v, ok
}

func truncate(b []byte, n int) string {
	s := string(bytes.TrimSpace(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
