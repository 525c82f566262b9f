package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ManuelReschke/videopass/internal/pkg/config"
)

const (
	paddleAPIVersion    = "1"
	maxErrorBodyInError = 1 << 10
)

var (
	ErrMissingAPIKey      = errors.New("PADDLE_API_KEY is not configured")
	ErrIncompleteResponse = errors.New("paddle response missing transaction id or checkout url")
)

// PaddleClient talks to the Paddle Billing REST API. It never retries;
// callers surface failures and the buyer starts a new checkout.
type PaddleClient struct {
	apiKey string
	http   *resty.Client
}

func NewPaddleClient(cfg config.PaddleConfig) *PaddleClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.APIBaseURL()).
		SetTimeout(timeout).
		SetHeader("Paddle-Version", paddleAPIVersion).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(strings.TrimSpace(cfg.APIKey))
	}

	return &PaddleClient{
		apiKey: strings.TrimSpace(cfg.APIKey),
		http:   httpClient,
	}
}

type transactionItem struct {
	PriceID  string `json:"price_id"`
	Quantity int    `json:"quantity"`
}

type transactionCustomer struct {
	Email string `json:"email"`
}

type createTransactionBody struct {
	Items          []transactionItem      `json:"items"`
	Customer       transactionCustomer    `json:"customer"`
	CustomData     map[string]interface{} `json:"custom_data"`
	CollectionMode string                 `json:"collection_mode"`
}

// CreateTransaction creates an automatically collected transaction and
// returns its id together with the hosted checkout URL.
func (c *PaddleClient) CreateTransaction(ctx context.Context, in TransactionRequest) (*Transaction, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(in.PriceID) == "" {
		return nil, errors.New("price id is required")
	}

	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	body := createTransactionBody{
		Items:          []transactionItem{{PriceID: in.PriceID, Quantity: quantity}},
		Customer:       transactionCustomer{Email: in.CustomerEmail},
		CollectionMode: "automatic",
		CustomData: map[string]interface{}{
			"orderId": in.CustomData.OrderID,
			"userId":  in.CustomData.UserID,
			"videoId": in.CustomData.VideoID,
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/transactions")
	if err != nil {
		return nil, fmt.Errorf("paddle create transaction: %w", err)
	}
	if resp.IsError() {
		return nil, parseAPIError(resp.StatusCode(), resp.Body())
	}

	var out struct {
		Data struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Checkout *struct {
				URL string `json:"url"`
			} `json:"checkout"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("paddle create transaction: decode response: %w", err)
	}
	if strings.TrimSpace(out.Data.ID) == "" || out.Data.Checkout == nil || strings.TrimSpace(out.Data.Checkout.URL) == "" {
		return nil, fmt.Errorf("paddle create transaction: %w", ErrIncompleteResponse)
	}

	return &Transaction{
		ID:          out.Data.ID,
		Status:      out.Data.Status,
		CheckoutURL: out.Data.Checkout.URL,
	}, nil
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Error struct {
			Code   string `json:"code"`
			Detail string `json:"detail"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Detail = envelope.Error.Detail
	}
	if len(body) > maxErrorBodyInError {
		body = body[:maxErrorBodyInError]
	}
	apiErr.Body = string(body)
	return apiErr
}
