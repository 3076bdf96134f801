// Package twilio is a minimal client for the Twilio REST API and the Media
// Streams websocket protocol: placing calls, sending SMS, and the message
// frames exchanged over a bidirectional media stream.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twilio.com"

// Client talks to the Twilio REST API with account-SID basic auth.
type Client struct {
	AccountSID string
	AuthToken  string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a REST client for the given account credentials.
func NewClient(accountSID, authToken string) *Client {
	return &Client{
		AccountSID: accountSID,
		AuthToken:  authToken,
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the Twilio REST API.
type APIError struct {
	Status   int    `json:"status"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio api error %d (code %d): %s", e.Status, e.Code, e.Message)
}

// Call is the subset of the call resource this service reads back.
type Call struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
	From   string `json:"from"`
}

// Message is the subset of the message resource this service reads back.
type Message struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// CreateCallParams places an outbound call that runs the given TwiML and
// reports completion to the status callback URL.
type CreateCallParams struct {
	To             string
	From           string
	TwiML          string
	StatusCallback string
	StatusEvents   []string
}

// CreateCall places an outbound voice call.
func (c *Client) CreateCall(ctx context.Context, p CreateCallParams) (*Call, error) {
	form := url.Values{}
	form.Set("To", p.To)
	form.Set("From", p.From)
	form.Set("Twiml", p.TwiML)
	if p.StatusCallback != "" {
		form.Set("StatusCallback", p.StatusCallback)
		for _, ev := range p.StatusEvents {
			form.Add("StatusCallbackEvent", ev)
		}
	}
	var call Call
	if err := c.post(ctx, "Calls.json", form, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// SendSMS sends a text message from the account's configured number.
func (c *Client) SendSMS(ctx context.Context, from, to, body string) (*Message, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)
	var msg Message
	if err := c.post(ctx, "Messages.json", form, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) post(ctx context.Context, resource string, form url.Values, out any) error {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/%s", base, c.AccountSID, resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.AccountSID, c.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read twilio response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode twilio response: %w", err)
		}
	}
	return nil
}
