// Package messenger is the thin client for the remote messaging platform:
// the Send API for outbound messages and the profile endpoint for display
// names. Delivery is best-effort; callers log failures and move on.
package messenger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"nativeteacher/backend/internal/models"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v2.6"

// Sender is the outbound capability consumed by the dispatcher.
type Sender interface {
	Send(recipientID string, message models.OutboundMessage) error
}

// NameFetcher is the profile-lookup capability, used once per new user.
type NameFetcher interface {
	FetchDisplayName(psid string) (string, error)
}

// Client talks to the platform Graph API.
type Client struct {
	BaseURL     string
	AccessToken string
	HTTP        *http.Client
}

// NewClient creates a platform client with the page access token.
func NewClient(accessToken string) *Client {
	return &Client{
		BaseURL:     defaultGraphBaseURL,
		AccessToken: accessToken,
		HTTP:        &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	Recipient recipient              `json:"recipient"`
	Message   models.OutboundMessage `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

// Send delivers one message to the given PSID via the Send API.
func (c *Client) Send(recipientID string, message models.OutboundMessage) error {
	body, err := json.Marshal(sendRequest{
		Recipient: recipient{ID: recipientID},
		Message:   message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode send request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.BaseURL, url.QueryEscape(c.AccessToken))
	resp, err := c.HTTP.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send API returned %d: %s", resp.StatusCode, detail)
	}

	log.Printf("Message sent to %s", recipientID)
	return nil
}

type profileResponse struct {
	FirstName string `json:"first_name"`
}

// FetchDisplayName looks up the user's first name. An empty name with a nil
// error means the platform had nothing for us; greetings then skip the
// personalization.
func (c *Client) FetchDisplayName(psid string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=first_name&access_token=%s",
		c.BaseURL, url.PathEscape(psid), url.QueryEscape(c.AccessToken))

	resp, err := c.HTTP.Get(endpoint)
	if err != nil {
		return "", fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("profile endpoint returned %d", resp.StatusCode)
	}

	var profile profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("failed to decode profile response: %w", err)
	}
	return profile.FirstName, nil
}
