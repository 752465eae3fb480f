package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	config "github.com/jmulders/ccv_reconciler/configs"
)

var (
	ErrMissingReference  = errors.New("transaction reference is missing")
	ErrMissingReferences = errors.New("no transaction references supplied")
)

// Error is the single error channel for transport and gateway-side failures.
// Callers treat it as transient: the order is left untouched and the next
// poll or webhook retries.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway error: %s", e.Message)
}

// Gateway is the contract the reconciliation engine depends on. Client talks
// to the live CCV API; Mock serves canned snapshots in tests.
type Gateway interface {
	CreatePayment(req PaymentRequest) (*PaymentResponse, error)
	GetTransaction(reference string) (*TransactionSnapshot, error)
	GetTransactions(references []string) ([]TransactionSnapshot, error)
	Refund(reference string, amount *decimal.Decimal, description string) (*TransactionSnapshot, error)
	Reverse(reference string, description string) (*TransactionSnapshot, error)
	Cancel(reference string) (*TransactionSnapshot, error)
}

// Client is a stateless HTTP wrapper around the CCV REST API. The API key is
// exchanged for a Basic auth header (key as username, empty password).
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg config.Settings) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GatewayBaseURL, "/"),
		apiKey:  cfg.GatewayAPIKey,
		client:  &http.Client{Timeout: cfg.GatewayTimeout},
	}
}

func (c *Client) do(method, path string, query url.Values, payload interface{}) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal gateway payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %v", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to read response body: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return respBody, nil
}

func (c *Client) CreatePayment(req PaymentRequest) (*PaymentResponse, error) {
	raw, err := c.do(http.MethodPost, "/payment", nil, req)
	if err != nil {
		return nil, err
	}

	var resp PaymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to unmarshal payment response: %v", err)}
	}
	return &resp, nil
}

func (c *Client) GetTransaction(reference string) (*TransactionSnapshot, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}

	query := url.Values{"reference": {reference}}
	raw, err := c.do(http.MethodGet, "/transaction", query, nil)
	if err != nil {
		return nil, err
	}

	return unmarshalSnapshot(raw)
}

func (c *Client) GetTransactions(references []string) ([]TransactionSnapshot, error) {
	if len(references) == 0 {
		return nil, ErrMissingReferences
	}

	query := url.Values{"references": {strings.Join(references, ",")}}
	raw, err := c.do(http.MethodGet, "/transaction", query, nil)
	if err != nil {
		return nil, err
	}

	var snapshots []TransactionSnapshot
	if err := json.Unmarshal(raw, &snapshots); err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to unmarshal transactions: %v", err)}
	}
	for i := range snapshots {
		snapshots[i].Normalize()
	}
	return snapshots, nil
}

func (c *Client) Refund(reference string, amount *decimal.Decimal, description string) (*TransactionSnapshot, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}

	payload := map[string]interface{}{"description": description}
	if amount != nil {
		payload["amount"] = *amount
	}

	query := url.Values{"reference": {reference}}
	raw, err := c.do(http.MethodPost, "/refund", query, payload)
	if err != nil {
		return nil, err
	}

	return unmarshalSnapshot(raw)
}

// Reverse voids an authorise-only transaction. The gateway always reverses
// the full authorized amount, so no amount is ever sent.
func (c *Client) Reverse(reference string, description string) (*TransactionSnapshot, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}

	payload := map[string]interface{}{"description": description}
	query := url.Values{"reference": {reference}}
	raw, err := c.do(http.MethodPost, "/reversal", query, payload)
	if err != nil {
		return nil, err
	}

	return unmarshalSnapshot(raw)
}

func (c *Client) Cancel(reference string) (*TransactionSnapshot, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}

	query := url.Values{"reference": {reference}}
	raw, err := c.do(http.MethodPost, "/cancel", query, nil)
	if err != nil {
		return nil, err
	}

	return unmarshalSnapshot(raw)
}

func unmarshalSnapshot(raw []byte) (*TransactionSnapshot, error) {
	var snapshot TransactionSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to unmarshal transaction: %v", err)}
	}
	snapshot.Normalize()
	return &snapshot, nil
}

var _ Gateway = (*Client)(nil)
