package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const sendGridURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

// NewSendGridSender creates a SendGrid sender. url overrides the API
// endpoint and is empty outside tests.
func NewSendGridSender(apiKey, url string, client *http.Client) *SendGridSender {
	if url == "" {
		url = sendGridURL
	}
	return &SendGridSender{apiKey: apiKey, url: url, httpClient: client}
}

func (s *SendGridSender) Name() string { return "sendgrid" }

// Send implements Sender.
func (s *SendGridSender) Send(ctx context.Context, from, to, subject, body string) error {
	if s.apiKey == "" {
		return fmt.Errorf("sendgrid API key not configured")
	}

	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": to}}},
		},
		"from":    map[string]string{"email": from},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": body},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
