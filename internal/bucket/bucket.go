// Package bucket talks to the object storage that holds generated carousel
// images. Downloads go through short-lived signed URLs so the bucket itself
// can stay private.
package bucket

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxObjectBytes = 32 << 20

// Client signs and fetches objects from a single bucket.
type Client struct {
	baseURL string
	name    string
	secret  []byte
	ttl     time.Duration
	hc      *http.Client
	logger  *slog.Logger

	now func() time.Time
}

func NewClient(baseURL, name, secret string, ttl time.Duration, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		name:    name,
		secret:  []byte(secret),
		ttl:     ttl,
		hc:      httpClient,
		logger:  logger,
		now:     time.Now,
	}
}

// SignURL produces a time-limited URL for one object path. The token covers
// both the path and the expiry, so neither can be swapped after signing.
func (c *Client) SignURL(path string) string {
	path = strings.TrimLeft(path, "/")
	expires := c.now().Add(c.ttl).Unix()

	mac := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(mac, "%s/%s\n%d", c.name, path, expires)
	token := hex.EncodeToString(mac.Sum(nil))

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("token", token)
	return fmt.Sprintf("%s/object/%s/%s?%s", c.baseURL, c.name, path, q.Encode())
}

// Verify reports whether a token matches the given path and expiry and the
// expiry has not passed yet.
func (c *Client) Verify(path, token string, expires int64) bool {
	if expires < c.now().Unix() {
		return false
	}
	path = strings.TrimLeft(path, "/")
	mac := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(mac, "%s/%s\n%d", c.name, path, expires)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(token))
}

// Fetch downloads one object through a freshly signed URL.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	signed := c.SignURL(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signed, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := c.now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("bucket fetch", "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
