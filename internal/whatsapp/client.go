// Package whatsapp sends WhatsApp text messages through Z-API.
package whatsapp

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

	"arrume_backend/platform/config"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/metrics"
	"arrume_backend/platform/phone"
)

const (
	userAgent       = "Arrume/1.0"
	defaultEndpoint = "send-text"
	maxErrorBody    = 512
)

// ErrNotConfigured is returned when the instance or token is missing.
var ErrNotConfigured = errors.New("whatsapp: z-api instance or token not configured")

// Receipt identifies an accepted message.
type Receipt struct {
	MessageID string
	ZaapID    string
}

// Client talks to the Z-API REST API.
type Client struct {
	baseURL     string
	instance    string
	token       string
	endpoint    string
	clientToken string
	http        *http.Client
	metrics     *metrics.Metrics
	log         *logger.Logger
}

type sendTextRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// sendTextResponse covers the id spellings Z-API has used across versions.
type sendTextResponse struct {
	MessageID      string `json:"messageId"`
	MessageIDSnake string `json:"message_id"`
	ID             string `json:"id"`
	ZaapID         string `json:"zaapId"`
	ZaapIDSnake    string `json:"zaap_id"`
}

// NewClient creates a Z-API client.
func NewClient(cfg config.WhatsAppConfig, m *metrics.Metrics, log *logger.Logger) *Client {
	endpoint := strings.Trim(cfg.GetZAPIMessageEndpoint(), "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.GetZAPITimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.GetZAPIURLBase(), "/"),
		instance:    strings.TrimSpace(cfg.GetZAPIInstance()),
		token:       strings.TrimSpace(cfg.GetZAPIToken()),
		endpoint:    endpoint,
		clientToken: strings.TrimSpace(cfg.GetZAPIClientToken()),
		http:        &http.Client{Timeout: timeout},
		metrics:     m,
		log:         log,
	}
}

// Send delivers message to phoneNumber.
func (c *Client) Send(ctx context.Context, phoneNumber, message string) (Receipt, error) {
	if c.instance == "" || c.token == "" {
		return Receipt{}, ErrNotConfigured
	}

	normalized := phone.Normalize(phoneNumber)
	body, err := json.Marshal(sendTextRequest{Phone: normalized, Message: message})
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/instances/%s/token/%s/%s", c.baseURL, c.instance, c.token, c.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.clientToken != "" {
		req.Header.Set("Client-Token", c.clientToken)
	}

	started := time.Now()
	receipt, err := c.do(req)
	c.metrics.ExternalCall("zapi", started, err)
	if err != nil {
		return Receipt{}, err
	}

	c.log.WithContext(ctx).Info("whatsapp sent via z-api",
		"phone", normalized,
		"messageId", receipt.MessageID,
		"zaapId", receipt.ZaapID,
	)
	return receipt, nil
}

func (c *Client) do(req *http.Request) (Receipt, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := strings.TrimSpace(string(data))
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(text), "client-token") {
			c.log.Warn("z-api rejected the request: check ZAPI_CLIENT_TOKEN matches the account security token")
		}
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return Receipt{}, fmt.Errorf("whatsapp service returned %d: %s", resp.StatusCode, text)
	}

	var parsed sendTextResponse
	if len(data) > 0 {
		if err := json.Unmarshal(data, &parsed); err != nil {
			c.log.Debug("z-api response was not json", "error", err)
		}
	}
	return Receipt{
		MessageID: firstNonEmpty(parsed.MessageID, parsed.MessageIDSnake, parsed.ID),
		ZaapID:    firstNonEmpty(parsed.ZaapID, parsed.ZaapIDSnake),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
