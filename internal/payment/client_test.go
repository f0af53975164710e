package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateIntent_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/payment_intents" {
			t.Fatalf("path = %s, want /v1/payment_intents", r.URL.Path)
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Fatalf("missing Idempotency-Key header")
		}

		var req createIntentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Amount != 2200 {
			t.Fatalf("amount = %d, want 2200", req.Amount)
		}
		if req.Currency != "usd" {
			t.Fatalf("currency = %q, want usd", req.Currency)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Intent{
			ID:           "pi_123",
			ClientSecret: "pi_123_secret_abc",
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)

	intent, err := c.CreateIntent(context.Background(), 2200, "usd")
	if err != nil {
		t.Fatalf("CreateIntent error: %v", err)
	}
	if intent.ID != "pi_123" {
		t.Fatalf("intent id = %q, want pi_123", intent.ID)
	}
	if intent.ClientSecret != "pi_123_secret_abc" {
		t.Fatalf("client secret = %q", intent.ClientSecret)
	}
}

func TestCreateIntent_InvalidAmount(t *testing.T) {
	c := NewClient("localhost:9999")

	for _, amount := range []int64{0, -100} {
		_, err := c.CreateIntent(context.Background(), amount, "usd")
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestCreateIntent_GatewayError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)

	_, err := c.CreateIntent(context.Background(), 100, "usd")
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("err = %v, want ErrGateway", err)
	}
}

func TestCreateIntent_IncompleteResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL)

	_, err := c.CreateIntent(context.Background(), 100, "usd")
	if err == nil {
		t.Fatalf("expected error for response without client secret")
	}
}
