// Package payment предоставляет клиент платёжного шлюза карточных платежей.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrInvalidAmount возвращается при попытке создать платёж на неположительную сумму.
	ErrInvalidAmount = errors.New("payment amount must be positive")
	// ErrGateway возвращается, когда шлюз отверг запрос или вернул некорректный ответ.
	ErrGateway = errors.New("payment gateway error")
)

// Client инкапсулирует HTTP-взаимодействие с платёжным шлюзом.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// Intent описывает созданное платёжное намерение шлюза.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type createIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewClient создаёт HTTP-клиент для обращения к платёжному шлюзу по указанному адресу.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc,
	}
}

// CreateIntent создаёт платёжное намерение на указанную сумму в минорных единицах
// валюты шлюза. Каждый запрос несёт уникальный ключ идемпотентности, чтобы
// повторы на уровне HTTP не создавали дублирующих платежей.
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, currency string) (*Intent, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("payment client not configured")
	}

	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(createIntentRequest{
		Amount:   amountMinor,
		Currency: currency,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := base + "/v1/payment_intents"

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrGateway, resp.StatusCode)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("%w: decode response: %s", ErrGateway, err)
	}

	if intent.ID == "" || intent.ClientSecret == "" {
		return nil, fmt.Errorf("%w: incomplete intent response", ErrGateway)
	}

	return &intent, nil
}
