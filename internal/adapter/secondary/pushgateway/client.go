// Package pushgateway delivers notifications to the third-party push
// gateway over HTTP.
package pushgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pushretry/internal/config"
	"pushretry/internal/domain/entity"
	"pushretry/internal/port/secondary"
)

// payload is the gateway's expected request body.
type payload struct {
	NotificationID string            `json:"notification_id"`
	Tokens         []string          `json:"tokens"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
	Priority       string            `json:"priority,omitempty"`
	TTLSeconds     int               `json:"ttl_seconds,omitempty"`
	CollapseKey    string            `json:"collapse_key,omitempty"`
}

// gatewayResponse is the subset of the gateway's response we act on.
type gatewayResponse struct {
	Errors []string `json:"errors"`
}

// Client implements secondary.Deliverer against the push gateway.
type Client struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a gateway client with a pooled HTTP transport.
func NewClient(cfg *config.Config, logger *zap.Logger) secondary.Deliverer {
	client := &http.Client{
		Timeout: cfg.GatewayTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	logger.Info("push gateway client initialized",
		zap.String("url", cfg.GatewayURL),
		zap.Duration("timeout", client.Timeout),
	)

	return &Client{
		url:    cfg.GatewayURL,
		client: client,
		logger: logger.Named("push-gateway"),
	}
}

// Deliver sends one notification to the gateway. Transport failures and
// non-2xx responses are both reported through the result.
func (c *Client) Deliver(ctx context.Context, n *entity.Notification) entity.DeliveryResult {
	body := payload{
		NotificationID: n.ID,
		Tokens:         n.Tokens,
		Title:          n.Title,
		Body:           n.Body,
		Data:           n.Data,
	}
	if n.Options != nil {
		body.Priority = n.Options.Priority
		body.TTLSeconds = n.Options.TTLSeconds
		body.CollapseKey = n.Options.CollapseKey
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return failure(fmt.Sprintf("encoding notification: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return failure(fmt.Sprintf("creating gateway request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pushretry/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return failure(fmt.Sprintf("gateway request: %v", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gw gatewayResponse
		if err := json.Unmarshal(respBody, &gw); err == nil && len(gw.Errors) > 0 {
			return entity.DeliveryResult{Success: false, Errors: gw.Errors}
		}
		return failure(fmt.Sprintf("gateway returned status %d: %s", resp.StatusCode, respBody))
	}

	c.logger.Debug("notification delivered",
		zap.String("notification_id", n.ID),
		zap.Int("tokens", len(n.Tokens)),
		zap.Int("status_code", resp.StatusCode),
	)
	return entity.DeliveryResult{Success: true}
}

func failure(msg string) entity.DeliveryResult {
	return entity.DeliveryResult{Success: false, Errors: []string{msg}}
}
