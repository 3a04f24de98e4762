package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "secret" {
			t.Errorf("missing basic auth, got %q/%q", user, pass)
		}

		var body CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Amount != 49900 || body.Currency != "INR" || body.Notes["userId"] != "alice" {
			t.Errorf("unexpected body: %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Order{ID: "order_123", Amount: body.Amount, Currency: body.Currency, Receipt: body.Receipt, Status: "created"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, KeyID: "rzp_test_key", KeySecret: "secret"})
	order, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:   49900,
		Currency: "INR",
		Receipt:  "recharge_alice_1",
		Notes:    map[string]string{"userId": "alice"},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.ID != "order_123" || order.Status != "created" {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestCreateOrderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too low"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, KeyID: "k", KeySecret: "s"})
	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != "BAD_REQUEST_ERROR" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestCreateOrderTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, KeyID: "k", KeySecret: "s", Timeout: 20 * time.Millisecond})
	if _, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR"}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestCreateOrderNotConfigured(t *testing.T) {
	c := NewClient(Config{})
	if _, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
