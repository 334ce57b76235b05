package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxErrorBody = 4096

// Client talks to the CRM backend's JSON API.
type Client struct {
	// BaseURL includes the API prefix, e.g. https://crm.example/api
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL string, opts ...func(*Client)) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithAPIKey(key string) func(*Client) {
	return func(c *Client) {
		c.APIKey = strings.TrimSpace(key)
	}
}

func WithHTTPClient(hc *http.Client) func(*Client) {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

func WithTimeout(d time.Duration) func(*Client) {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient = &http.Client{Timeout: d, Transport: c.HTTPClient.Transport}
		}
	}
}

// GetQuote loads the lead and articles addressed by an access token.
func (c *Client) GetQuote(ctx context.Context, token string) (*Quote, error) {
	var dto QuoteDTO
	if err := c.getJSON(ctx, "get quote", "/quote/"+url.PathEscape(token), &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

// GetQuoteGroup lists the leads sharing a group ID.
func (c *Client) GetQuoteGroup(ctx context.Context, groupID string) ([]*Quote, error) {
	var dto groupDTO
	if err := c.getJSON(ctx, "get quote group", "/quote-group/"+url.PathEscape(groupID), &dto); err != nil {
		return nil, err
	}
	out := make([]*Quote, 0, len(dto))
	for _, l := range dto {
		out = append(out, &Quote{Lead: l.toDomain()})
	}
	return out, nil
}

// GetQuoteDetailByLead loads a sibling lead with its articles. Backends without
// this route answer 404, which surfaces as ErrNotFound.
func (c *Client) GetQuoteDetailByLead(ctx context.Context, leadID int64) (*Quote, error) {
	var dto QuoteDTO
	path := "/quote-detail-by-lead/" + strconv.FormatInt(leadID, 10)
	if err := c.getJSON(ctx, "get quote detail", path, &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

// ConfirmQuote confirms an ungrouped quote.
func (c *Client) ConfirmQuote(ctx context.Context, token string, body ConfirmRequest) (Ack, error) {
	return c.postAck(ctx, "confirm quote", "/quote/"+url.PathEscape(token)+"/confirm", body)
}

// ConvertLead converts one lead of a group into a booking.
func (c *Client) ConvertLead(ctx context.Context, leadID int64, body ConfirmRequest) (Ack, error) {
	path := "/lead/" + strconv.FormatInt(leadID, 10) + "/convert-to-booking"
	return c.postAck(ctx, "convert lead", path, body)
}

// SendFeedback forwards a customer message about a quote.
func (c *Client) SendFeedback(ctx context.Context, token string, fb Feedback) error {
	status, body, err := c.do(ctx, "send feedback", http.MethodPost, "/quote/"+url.PathEscape(token)+"/feedback", fb)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return &StatusError{Op: "send feedback", StatusCode: status, Message: errorMessage(body)}
	}
	return nil
}

// GetBooking loads a confirmed booking by its portal token.
func (c *Client) GetBooking(ctx context.Context, token string) (*Booking, error) {
	var dto BookingResponseDTO
	if err := c.getJSON(ctx, "get booking", "/auftrag/"+url.PathEscape(token), &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

// UpdateLayout submits or approves the photo layout of a booking.
func (c *Client) UpdateLayout(ctx context.Context, token string, upd LayoutUpdate) error {
	status, body, err := c.do(ctx, "update layout", http.MethodPatch, "/auftrag/"+url.PathEscape(token)+"/layout", upd)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return &StatusError{Op: "update layout", StatusCode: status, Message: errorMessage(body)}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	status, body, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return &StatusError{Op: op, StatusCode: status, Message: errorMessage(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// postAck sends a mutating call and interprets {success, message}. A refusal
// because the lead is already confirmed is returned as an Ack, not an error.
// Only an explicit success flag beats an already-confirmed message; a 2xx
// answer without a success field otherwise counts as success.
func (c *Client) postAck(ctx context.Context, op, path string, in any) (Ack, error) {
	status, body, err := c.do(ctx, op, http.MethodPost, path, in)
	if err != nil {
		return Ack{}, err
	}

	var dto ackDTO
	if len(bytes.TrimSpace(body)) > 0 {
		if jerr := json.Unmarshal(body, &dto); jerr != nil && status/100 == 2 {
			return Ack{}, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", jerr)}
		}
	}
	msg := dto.message()

	if status/100 == 2 && dto.Success != nil && *dto.Success {
		return Ack{Success: true, Message: msg}, nil
	}
	if isAlreadyConfirmed(status, msg) {
		return Ack{AlreadyConfirmed: true, Message: msg}, nil
	}
	if status/100 == 2 && dto.Success == nil {
		return Ack{Success: true, Message: msg}, nil
	}
	if status/100 != 2 {
		return Ack{}, &StatusError{Op: op, StatusCode: status, Message: msg}
	}
	return Ack{Success: false, Message: msg}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in any) (int, []byte, error) {
	if c == nil {
		return 0, nil, ErrNilClient
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("crm %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("crm %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	return resp.StatusCode, body, nil
}

func errorMessage(body []byte) string {
	var dto ackDTO
	if err := json.Unmarshal(body, &dto); err == nil && dto.message() != "" {
		return dto.message()
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}
