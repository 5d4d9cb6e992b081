package mailer

import (
	"context"
	"fmt"
	"strings"

	"taskmint/internal/pkg/httpclient"
)

// Sender delivers notification mail. Implemented by the HTTP gateway client
// below; the engine depends on the interface so tests can capture sends.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// Client posts mail to an HTTP mail gateway.
type Client struct {
	http *httpclient.Client
	from string
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

type sendResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// New builds a mail client on top of a preconfigured HTTP client.
func New(http *httpclient.Client, from string) *Client {
	return &Client{http: http, from: from}
}

// Send posts one message to the gateway.
func (c *Client) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	var out sendResponse
	resp, err := c.http.Request().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(sendRequest{
			From:    c.from,
			To:      to,
			Subject: subject,
			Body:    body,
		}).
		SetResult(&out).
		Post("/v1/send")
	if err != nil {
		return fmt.Errorf("mail gateway call failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mail gateway returned %s", resp.Status())
	}
	if !out.OK {
		if out.Error != "" {
			return fmt.Errorf("mail gateway error: %s", out.Error)
		}
		return fmt.Errorf("mail gateway rejected the message")
	}
	return nil
}

// SplitRecipients parses a stored comma-separated recipient list.
func SplitRecipients(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
