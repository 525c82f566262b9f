package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/videopass/internal/pkg/config"
)

func newTestPaddleClient(t *testing.T, handler http.HandlerFunc) *PaddleClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPaddleClient(config.PaddleConfig{
		APIKey:      "pdl_test_key",
		Environment: config.PADDLE_ENV_SANDBOX,
		BaseURL:     srv.URL,
		HTTPTimeout: 2 * time.Second,
	})
}

func TestPaddleClientCreateTransaction(t *testing.T) {
	var gotBody map[string]interface{}
	client := newTestPaddleClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, "Bearer pdl_test_key", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.Header.Get("Paddle-Version"))

		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"txn_01","status":"ready","checkout":{"url":"https://pay.example.com/?_ptxn=txn_01"}}}`))
	})

	tx, err := client.CreateTransaction(context.Background(), TransactionRequest{
		PriceID:       "pri_01",
		CustomerEmail: "ana@example.com",
		CustomData:    CustomData{OrderID: "order-1", UserID: 7, VideoID: 8},
	})
	require.NoError(t, err)
	assert.Equal(t, "txn_01", tx.ID)
	assert.Equal(t, "https://pay.example.com/?_ptxn=txn_01", tx.CheckoutURL)

	assert.Equal(t, "automatic", gotBody["collection_mode"])
	items := gotBody["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "pri_01", items[0].(map[string]interface{})["price_id"])
	assert.Equal(t, float64(1), items[0].(map[string]interface{})["quantity"])
	assert.Equal(t, "ana@example.com", gotBody["customer"].(map[string]interface{})["email"])
	customData := gotBody["custom_data"].(map[string]interface{})
	assert.Equal(t, "order-1", customData["orderId"])
	assert.Equal(t, float64(7), customData["userId"])
	assert.Equal(t, float64(8), customData["videoId"])
}

func TestPaddleClientCreateTransactionAPIError(t *testing.T) {
	client := newTestPaddleClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"request_error","code":"bad_request","detail":"price not found"}}`))
	})

	_, err := client.CreateTransaction(context.Background(), TransactionRequest{PriceID: "pri_missing"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "bad_request", apiErr.Code)
	assert.Equal(t, "price not found", apiErr.Detail)
}

func TestPaddleClientCreateTransactionIncompleteResponse(t *testing.T) {
	for name, body := range map[string]string{
		"missing id":           `{"data":{"checkout":{"url":"https://pay.example.com/?_ptxn=txn_01"}}}`,
		"null checkout":        `{"data":{"id":"txn_01","status":"ready","checkout":null}}`,
		"empty checkout url":   `{"data":{"id":"txn_01","status":"ready","checkout":{"url":""}}}`,
		"no checkout property": `{"data":{"id":"txn_01","status":"ready"}}`,
	} {
		body := body
		t.Run(name, func(t *testing.T) {
			client := newTestPaddleClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			tx, err := client.CreateTransaction(context.Background(), TransactionRequest{PriceID: "pri_01"})
			assert.ErrorIs(t, err, ErrIncompleteResponse)
			assert.Nil(t, tx)
		})
	}
}

func TestPaddleClientRequiresAPIKey(t *testing.T) {
	client := NewPaddleClient(config.PaddleConfig{Environment: config.PADDLE_ENV_SANDBOX})
	_, err := client.CreateTransaction(context.Background(), TransactionRequest{PriceID: "pri_01"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
