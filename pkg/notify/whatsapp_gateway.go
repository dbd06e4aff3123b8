package notify

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

// WhatsAppConfig holds WhatsApp Cloud API configuration
type WhatsAppConfig struct {
	APIURL        string // e.g. https://graph.facebook.com/v19.0
	PhoneNumberID string
	Token         string
	Timeout       time.Duration
}

// WhatsAppGateway sends text messages through the WhatsApp Cloud API
type WhatsAppGateway struct {
	apiURL        string
	phoneNumberID string
	token         string
	client        *http.Client
}

// NewWhatsAppGateway creates a new WhatsApp gateway instance
func NewWhatsAppGateway(config WhatsAppConfig) *WhatsAppGateway {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &WhatsAppGateway{
		apiURL:        strings.TrimRight(config.APIURL, "/"),
		phoneNumberID: config.PhoneNumberID,
		token:         config.Token,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type whatsAppText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// Send posts a text message to phone
func (g *WhatsAppGateway) Send(ctx context.Context, phone, message string) error {
	if g.phoneNumberID == "" || g.token == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(whatsAppMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               phone,
		Type:             "text",
		Text:             whatsAppText{Body: message},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", g.apiURL, g.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send WhatsApp message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read WhatsApp response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Provider: "WhatsApp", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var result whatsAppResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse WhatsApp response: %w", err)
	}
	if len(result.Messages) == 0 {
		return fmt.Errorf("WhatsApp accepted no messages")
	}

	return nil
}

// Health fetches the sender phone number resource
func (g *WhatsAppGateway) Health(ctx context.Context) error {
	if g.phoneNumberID == "" || g.token == "" {
		return ErrNotConfigured
	}

	url := fmt.Sprintf("%s/%s", g.apiURL, g.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("WhatsApp API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Provider: "WhatsApp", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return nil
}

// Name returns the name of this gateway
func (g *WhatsAppGateway) Name() string {
	return "whatsapp"
}
