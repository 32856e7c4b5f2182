package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"rc-lights/internal/domain/model"
	"rc-lights/internal/domain/translator"
	"rc-lights/internal/ports"
)

var _ ports.HomeAssistantPort = (*Client)(nil)

var ErrNotConfigured = errors.New("Home Assistant not configured")

// Client reads entity states and calls services through the Home Assistant
// REST API. States are never cached: the dispatcher needs live values.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	mu         sync.RWMutex

	retries    int
	retryDelay time.Duration
}

type Option func(*Client)

// WithRetries retries failed service calls n times, waiting delay in between.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.retryDelay = delay
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configure(url, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = strings.TrimSuffix(url, "/")
	c.token = token
}

func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.url != "" && c.token != ""
}

func (c *Client) endpoint() (string, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.url == "" || c.token == "" {
		return "", "", ErrNotConfigured
	}
	return c.url, c.token, nil
}

// GetState returns (nil, nil) when Home Assistant does not know the entity.
func (c *Client) GetState(ctx context.Context, entityID string) (*model.EntityState, error) {
	urlBase, token, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlBase+"/api/states/"+url.PathEscape(entityID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HA API error: %d", resp.StatusCode)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode state of %s: %w", entityID, err)
	}
	return translator.ToEntityState(raw), nil
}

func (c *Client) CallService(ctx context.Context, call model.ServiceCall) error {
	urlBase, token, err := c.endpoint()
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/api/services/%s/%s", urlBase, call.Domain, call.Service)
	body, err := json.Marshal(call.Data())
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		err = c.post(ctx, endpoint, token, body)
		if err == nil || attempt >= c.retries || ctx.Err() != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *Client) post(ctx context.Context, endpoint, token string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HA API error: %d", resp.StatusCode)
	}
	return nil
}
