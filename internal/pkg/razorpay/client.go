package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNotConfigured = errors.New("razorpay: key id or secret missing")

// Config holds Razorpay API configuration
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// Client talks to the Razorpay orders API
type Client struct {
	http   *resty.Client
	config Config
}

// CreateOrderRequest is the body of POST /orders. Amount is in paise.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the subset of the order entity we use
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// APIError is returned for non-2xx answers
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Body        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// NewClient creates a client; the timeout bounds every call so order
// creation fails closed instead of hanging.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: rc, config: cfg}
}

// Configured reports whether credentials are present
func (c *Client) Configured() bool {
	return c != nil && c.config.KeyID != "" && c.config.KeySecret != ""
}

// KeyID is the public key the checkout needs
func (c *Client) KeyID() string {
	return c.config.KeyID
}

// CreateOrder registers an order with the gateway
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}

	var (
		order  Order
		failed apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&order).
		SetError(&failed).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{
			StatusCode:  resp.StatusCode(),
			Code:        failed.Error.Code,
			Description: failed.Error.Description,
			Body:        resp.String(),
		}
	}
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay create order: empty order id")
	}
	return &order, nil
}

// VerifyPaymentSignature checks the checkout signature for orderID/paymentID
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if !c.Configured() {
		return false
	}
	return VerifySignature(c.config.KeySecret, orderID, paymentID, signature)
}
