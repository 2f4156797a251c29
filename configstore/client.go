package configstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pkt.systems/layoutsync/schema"
	"pkt.systems/pslog"
)

// TokenProvider supplies a bearer token for device-config calls. The
// provider may not be ready when the engine starts; the client retries
// acquisition a bounded number of times with fixed backoff.
type TokenProvider func(ctx context.Context) (string, error)

// Options configures the device-config client.
type Options struct {
	BaseURL         string
	TokenProvider   TokenProvider
	HTTPClient      *http.Client
	TokenRetries    int
	TokenRetryDelay time.Duration
	AllowedDomains  []string
	Logger          pslog.Logger
}

// Client is a thin HTTP client over the per-device-type document
// endpoint. It carries no state beyond connection settings; all calls
// are safe for concurrent use.
type Client struct {
	baseURL         string
	tokenProvider   TokenProvider
	httpClient      *http.Client
	tokenRetries    int
	tokenRetryDelay time.Duration
	allowedDomains  []string
	log             pslog.Logger
}

const deviceConfigPath = "/api/cosmos/device-config/"

// New constructs a device-config client.
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("config store base url is required")
	}
	if opts.TokenProvider == nil {
		return nil, errors.New("token provider is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	tokenRetries := opts.TokenRetries
	if tokenRetries <= 0 {
		tokenRetries = 3
	}
	tokenRetryDelay := opts.TokenRetryDelay
	if tokenRetryDelay <= 0 {
		tokenRetryDelay = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Client{
		baseURL:         baseURL,
		tokenProvider:   opts.TokenProvider,
		httpClient:      httpClient,
		tokenRetries:    tokenRetries,
		tokenRetryDelay: tokenRetryDelay,
		allowedDomains:  append([]string(nil), opts.AllowedDomains...),
		log:             logger.With("component", "configstore"),
	}, nil
}

// documentEnvelope is the wire shape of the GET response.
type documentEnvelope struct {
	Name      string         `json:"name"`
	Config    documentConfig `json:"config"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type documentConfig struct {
	Tabs    []schema.Tab         `json:"tabs"`
	Layouts []schema.SavedLayout `json:"layouts,omitempty"`
}

type putRequest struct {
	Tabs    []schema.Tab         `json:"tabs"`
	Layouts []schema.SavedLayout `json:"layouts,omitempty"`
}

// Get fetches the document for a device type. A missing document
// returns schema.ErrNotFound; that is not a failure condition.
func (c *Client) Get(ctx context.Context, deviceType schema.DeviceType) (schema.DeviceConfig, error) {
	body, err := c.do(ctx, http.MethodGet, string(deviceType), nil, nil)
	if err != nil {
		return schema.DeviceConfig{}, err
	}
	if err := validateDocument(body); err != nil {
		c.log.Warn("config document rejected by schema", "device", deviceType, "err", err)
		return schema.DeviceConfig{}, fmt.Errorf("invalid device config document: %w", err)
	}
	var envelope documentEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return schema.DeviceConfig{}, err
	}
	doc := schema.DeviceConfig{
		DeviceType: deviceType,
		Tabs:       envelope.Config.Tabs,
		Layouts:    envelope.Config.Layouts,
		UpdatedAt:  envelope.UpdatedAt,
	}
	c.log.Debug("config get ok", "device", deviceType, "tabs", len(doc.Tabs), "updated_at", doc.UpdatedAt)
	return doc, nil
}

// Put writes the tab list for a device type. headers carries the
// edit-lock session headers attached to every mutating call.
func (c *Client) Put(ctx context.Context, deviceType schema.DeviceType, tabs []schema.Tab, layouts []schema.SavedLayout, headers map[string]string) error {
	payload, err := json.Marshal(putRequest{Tabs: tabs, Layouts: layouts})
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodPost, string(deviceType), headers, payload); err != nil {
		return err
	}
	c.log.Debug("config put ok", "device", deviceType, "tabs", len(tabs))
	return nil
}

// Delete removes the document for a device type.
func (c *Client) Delete(ctx context.Context, deviceType schema.DeviceType, headers map[string]string) error {
	if _, err := c.do(ctx, http.MethodDelete, string(deviceType), headers, nil); err != nil {
		return err
	}
	c.log.Info("config delete ok", "device", deviceType)
	return nil
}

// CopyTo copies the caller's layout to another identified user. The
// target email is checked against the allowed organizational domains
// before any network request is issued.
func (c *Client) CopyTo(ctx context.Context, req schema.CopyRequest, headers map[string]string) error {
	if err := schema.ValidateTargetEmail(req.TargetEmail, c.allowedDomains); err != nil {
		c.log.Warn("config copy rejected", "target", req.TargetEmail, "err", err)
		return err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodPost, "copy-to", headers, payload); err != nil {
		return err
	}
	c.log.Info("config copy ok", "target", req.TargetEmail, "all", req.All, "devices", len(req.DeviceTypes))
	return nil
}

func (c *Client) do(ctx context.Context, method, suffix string, headers map[string]string, body []byte) ([]byte, error) {
	token, err := c.acquireToken(ctx)
	if err != nil {
		return nil, err
	}
	url := c.baseURL + deviceConfigPath + suffix
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("config request failed", "method", method, "url", url, "err", err)
		return nil, err
	}
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return respBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, schema.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		c.log.Warn("config request unauthorized", "method", method, "status", resp.StatusCode)
		return nil, &AuthError{Attempts: 1, Err: &HTTPError{StatusCode: resp.StatusCode, Message: trimBody(respBody)}}
	default:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: trimBody(respBody)}
	}
}

// acquireToken tolerates the token provider initializing slightly after
// the engine starts: a bounded number of attempts with fixed backoff,
// then the call is abandoned as an AuthError.
func (c *Client) acquireToken(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.tokenRetries; attempt++ {
		token, err := c.tokenProvider(ctx)
		if err == nil && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), nil
		}
		if err == nil {
			err = errors.New("empty token")
		}
		lastErr = err
		c.log.Debug("auth token attempt failed", "attempt", attempt, "err", err)
		if attempt == c.tokenRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.tokenRetryDelay):
		}
	}
	return "", &AuthError{Attempts: c.tokenRetries, Err: lastErr}
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
