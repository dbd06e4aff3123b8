package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSURLConfig holds configuration for a URL-campaign SMS provider
type SMSURLConfig struct {
	APIURL  string
	APIKey  string
	Mask    string // Source address/mask
	Timeout time.Duration
}

// SMSURLGateway sends SMS through a provider's GET request API. The key is
// passed as a query parameter and the provider answers "1" on success.
type SMSURLGateway struct {
	apiURL string
	apiKey string
	mask   string
	client *http.Client
}

// NewSMSURLGateway creates a new SMS URL gateway instance
func NewSMSURLGateway(config SMSURLConfig) *SMSURLGateway {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &SMSURLGateway{
		apiURL: config.APIURL,
		apiKey: config.APIKey,
		mask:   config.Mask,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send delivers message to phone
func (g *SMSURLGateway) Send(ctx context.Context, phone, message string) error {
	if g.apiURL == "" || g.apiKey == "" {
		return ErrNotConfigured
	}

	params := url.Values{}
	params.Add("esmsqk", g.apiKey)
	params.Add("list", phone)
	params.Add("source_address", g.mask)
	params.Add("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read SMS response: %w", err)
	}

	responseStr := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK {
		return &APIError{Provider: "SMS", StatusCode: resp.StatusCode, Body: responseStr}
	}

	// Any answer other than "1" is an error id
	if responseStr != "1" {
		return fmt.Errorf("SMS sending failed with error code: %s", responseStr)
	}

	return nil
}

// Health checks that the provider endpoint answers without a server error
func (g *SMSURLGateway) Health(ctx context.Context) error {
	if g.apiURL == "" || g.apiKey == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, g.apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("SMS API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return &APIError{Provider: "SMS", StatusCode: resp.StatusCode}
	}

	return nil
}

// Name returns the name of this gateway
func (g *SMSURLGateway) Name() string {
	return "sms"
}
