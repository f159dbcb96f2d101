// Package mailer delivers roster reports by email through a
// SendGrid-compatible HTTP mail API.
package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrNotConfigured means the mail API key or sender address is
	// missing from configuration.
	ErrNotConfigured = errors.New("mail delivery is not configured")
	// ErrTransportAuth means the mail vendor rejected our API key.
	ErrTransportAuth = errors.New("mail service authentication failed")
	// ErrTransport covers every other delivery failure.
	ErrTransport = errors.New("mail delivery failed")
)

const (
	defaultBaseURL = "https://api.sendgrid.com"
	sendPath       = "/v3/mail/send"
	requestTimeout = 15 * time.Second
)

// Message is a single outbound mail with one optional attachment.
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentName string
	AttachmentType string
	Attachment     []byte
}

type address struct {
	Email string `json:"email"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type attachment struct {
	Content     string `json:"content"`
	Type        string `json:"type"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
	Attachments      []attachment      `json:"attachments,omitempty"`
}

// Client talks to the mail vendor's HTTP API.
type Client struct {
	http   *resty.Client
	sender string
}

// NewClient builds a mail client. An empty baseURL targets the vendor's
// production endpoint. Returns ErrNotConfigured when the key or sender
// is missing so callers can gate the feature.
func NewClient(apiKey, sender, baseURL string) (*Client, error) {
	if apiKey == "" || sender == "" {
		return nil, ErrNotConfigured
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &Client{http: c, sender: sender}, nil
}

// Send delivers a message. Auth rejections from the vendor surface as
// ErrTransportAuth, any other failure as ErrTransport.
func (c *Client) Send(ctx context.Context, msg Message) error {
	req := sendRequest{
		Personalizations: []personalization{{To: []address{{Email: msg.To}}}},
		From:             address{Email: c.sender},
		Subject:          msg.Subject,
		Content:          []content{{Type: "text/plain", Value: msg.Body}},
	}
	if len(msg.Attachment) > 0 {
		req.Attachments = []attachment{{
			Content:     base64.StdEncoding.EncodeToString(msg.Attachment),
			Type:        msg.AttachmentType,
			Filename:    msg.AttachmentName,
			Disposition: "attachment",
		}}
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(req).Post(sendPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("%w: vendor returned %d", ErrTransportAuth, resp.StatusCode())
	case resp.StatusCode() >= 300:
		return fmt.Errorf("%w: vendor returned %d", ErrTransport, resp.StatusCode())
	}
	return nil
}
