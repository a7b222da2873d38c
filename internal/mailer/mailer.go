// Package mailer sends transactional email through an HTTP delivery
// provider. The service treats the provider as an external
// collaborator: a send either verifiably succeeds or returns an error
// the caller can retry on its next pass.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Sender is the capability the reconciler and the reminder sweep need.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// emailPattern is deliberately loose: one local part, an @, and a dotted
// domain. It exists to keep obviously broken addresses from spamming
// the provider with rejections, not to validate RFC 5322.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address is plausible enough to hand to
// the delivery provider.
func ValidEmail(addr string) bool {
	return addr != "" && emailPattern.MatchString(addr)
}

// Client talks to a Resend-compatible email API.
type Client struct {
	apiURL  string
	apiKey  string
	from    string
	siteURL string
	http    *http.Client
}

// NewClient builds a mail client. siteURL is embedded into email bodies
// as the link back to the booking site.
func NewClient(apiURL, apiKey, from, siteURL string) *Client {
	if apiURL == "" {
		apiURL = "https://api.resend.com/emails"
	}
	return &Client{
		apiURL:  apiURL,
		apiKey:  apiKey,
		from:    from,
		siteURL: strings.TrimRight(siteURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SiteURL returns the public site link embedded in outgoing email.
func (c *Client) SiteURL() string { return c.siteURL }

// Send delivers one email. A non-2xx provider response is an error so
// callers never mark anything sent on an unverified delivery.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	payload, err := json.Marshal(map[string]string{
		"from":    c.from,
		"to":      to,
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail send failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}
