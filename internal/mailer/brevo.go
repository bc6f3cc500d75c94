package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"shift-sync-backend/config"
)

// Recipient is one entry of a message's to list.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Message is the transactional-email payload. Params feed the provider's
// template identified by TemplateID.
type Message struct {
	ReplyTo    Recipient      `json:"replyTo"`
	To         []Recipient    `json:"to"`
	Subject    string         `json:"subject"`
	TemplateID int64          `json:"templateId"`
	Params     map[string]any `json:"params"`
}

// SendError reports a delivery attempt the provider did not accept.
type SendError struct {
	StatusCode int
	Err        error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("email send failed: %v", e.Err)
	}
	return fmt.Sprintf("email send failed with status %d", e.StatusCode)
}

func (e *SendError) Unwrap() error { return e.Err }

// Sender defines the interface for sending a transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client is the real Sender backed by the Brevo HTTP API.
type Client struct {
	cfg    *config.MailerConfig
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a Brevo API client.
func NewClient(cfg *config.MailerConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Send posts the message to the provider. Only a 201 response counts as
// accepted; anything else is a SendError.
func (c *Client) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return &SendError{Err: fmt.Errorf("failed to marshal message: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return &SendError{Err: err}
	}
	req.Header.Set("api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &SendError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("email provider rejected message",
			"status", resp.StatusCode,
			"template_id", msg.TemplateID,
			"response", string(respBody))
		return &SendError{StatusCode: resp.StatusCode}
	}

	c.logger.Info("email accepted by provider", "template_id", msg.TemplateID, "recipients", len(msg.To))
	return nil
}
