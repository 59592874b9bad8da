// Package client is a Go client for the dappdash HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/xueqianLu/dappdash/internal/middleware"
)

// ActionData is the payload of an action request.
type ActionData struct {
	From      string `json:"from,omitempty"`
	Account   string `json:"account,omitempty"`
	To        string `json:"to,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Mode      bool   `json:"mode,omitempty"`
	Increment string `json:"increment,omitempty"`
}

// Envelope is the result of an action. Numbers are decoded as json.Number so
// large token amounts keep their precision.
type Envelope struct {
	Type       string `json:"type"`
	Label      string `json:"label"`
	Result     any    `json:"result"`
	UnitResult any    `json:"unitResult,omitempty"`
	Hint       string `json:"hint,omitempty"`
}

// ActionResponse is the envelope plus the HTML the server rendered for it.
type ActionResponse struct {
	Envelope Envelope `json:"envelope"`
	HTML     string   `json:"html"`
}

// ActionInfo describes an available action.
type ActionInfo struct {
	Name   string `json:"name"`
	Method string `json:"method"`
}

// CreateAccountResponse represents the response for a new account creation.
type CreateAccountResponse struct {
	Address string `json:"address"`
}

// Return fields accepted by Invoke.
const (
	ReturnResult     = "result"
	ReturnUnitResult = "unitResult"
)

// APIError is returned for non-2xx responses. Action failures carry the
// error envelope in Action.
type APIError struct {
	StatusCode int
	Body       string
	Action     *ActionResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client is a client for the dappdash service.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a new dappdash client. Writes wait for the transaction
// receipt, so the HTTP timeout is generous.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Health checks the health of the service.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var health struct {
		Status string `json:"status"`
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return "", fmt.Errorf("failed to decode health response: %w", err)
	}
	return health.Status, nil
}

// GetAccounts retrieves the accounts that can sign transactions.
func (c *Client) GetAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := c.doRequest(ctx, http.MethodGet, "/accounts", nil, &accounts)
	return accounts, err
}

// CreateAccount requests the creation of a new signing account.
func (c *Client) CreateAccount(ctx context.Context) (*CreateAccountResponse, error) {
	var resp CreateAccountResponse
	if err := c.doRequest(ctx, http.MethodPost, "/accounts", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Actions lists the available actions.
func (c *Client) Actions(ctx context.Context) ([]ActionInfo, error) {
	var list []ActionInfo
	err := c.doRequest(ctx, http.MethodGet, "/actions", nil, &list)
	return list, err
}

// Invoke runs an action. returnField selects which envelope field the
// server renders into HTML; empty means ReturnResult.
func (c *Client) Invoke(ctx context.Context, action string, data ActionData, returnField string) (*ActionResponse, error) {
	path := "/actions/" + url.PathEscape(action)
	if returnField != "" {
		path += "?return=" + url.QueryEscape(returnField)
	}
	var resp ActionResponse
	if err := c.doRequest(ctx, http.MethodPost, path, data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, data, result any) error {
	var reqBody []byte
	if data != nil {
		var err error
		if reqBody, err = json.Marshal(data); err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.APIKeyHeader, c.apiKey)
	req.Header.Set(middleware.TimestampHeader, timestamp)
	req.Header.Set(middleware.SignatureHeader, middleware.Sign(c.apiSecret, timestamp, reqBody))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		var action ActionResponse
		if decode(respBody, &action) == nil && action.Envelope.Type != "" {
			apiErr.Action = &action
		}
		return apiErr
	}

	if result != nil {
		if err := decode(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}
