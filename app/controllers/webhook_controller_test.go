package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/videopass/app/models"
	"github.com/ManuelReschke/videopass/internal/pkg/billing"
	"github.com/ManuelReschke/videopass/internal/pkg/commerce"
)

func webhookRequest(t *testing.T, payload map[string]interface{}, secret string) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(billing.PaddleSignatureHeader, billing.SignPaddleWebhook(body, secret, time.Now().Unix()))
	}
	return req
}

func paidEvent(eventID, txID, orderID string) map[string]interface{} {
	data := map[string]interface{}{"id": txID, "status": "completed"}
	if orderID != "" {
		data["custom_data"] = map[string]interface{}{"orderId": orderID}
	}
	return map[string]interface{}{
		"event_id":   eventID,
		"event_type": billing.EventTransactionPaid,
		"data":       data,
	}
}

func TestHandlePaddleWebhookGrantsAccess(t *testing.T) {
	ts := newTestServer(t)

	status, out := ts.do(t, jsonRequest(http.MethodPost, "/api/orders/checkout", `{"userEmail":"ana@example.com","videoId":8}`))
	require.Equal(t, fiber.StatusOK, status)
	orderID := out["orderId"].(string)

	for i := 0; i < 2; i++ {
		status, out = ts.do(t, webhookRequest(t, paidEvent("evt_1", "txn_ctrl", orderID), testSecret))
		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, true, out["ok"])
	}

	var order models.Order
	require.NoError(t, ts.db.First(&order, "id = ?", orderID).Error)
	assert.Equal(t, models.ORDER_STATE_PAID, order.State)
	assert.Equal(t, "txn_ctrl", order.TransactionID())

	var grants int64
	require.NoError(t, ts.db.Model(&models.Access{}).Count(&grants).Error)
	assert.Equal(t, int64(1), grants)

	var event models.PaymentWebhookEvent
	require.NoError(t, ts.db.First(&event, "provider_event_id = ?", "evt_1").Error)
	assert.Equal(t, 2, event.DeliveryCount)

	status, out = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/orders/access/check?userEmail=ana@example.com&videoId=8", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["hasAccess"])
}

func TestHandlePaddleWebhookRejectsBadSignature(t *testing.T) {
	ts := newTestServer(t)

	for name, secret := range map[string]string{"unsigned": "", "wrong secret": "other_secret"} {
		t.Run(name, func(t *testing.T) {
			status, out := ts.do(t, webhookRequest(t, paidEvent("evt_2", "txn_x", ""), secret))
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, commerce.CodeUnauthorized, out["error"])
		})
	}

	var events int64
	require.NoError(t, ts.db.Model(&models.PaymentWebhookEvent{}).Count(&events).Error)
	assert.Zero(t, events)
}

func TestHandlePaddleWebhookAcknowledgesNonActionable(t *testing.T) {
	ts := newTestServer(t)

	ignored := map[string]interface{}{
		"event_id":   "evt_3",
		"event_type": "transaction.created",
		"data":       map[string]interface{}{"id": "txn_ctrl"},
	}
	status, _ := ts.do(t, webhookRequest(t, ignored, testSecret))
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = ts.do(t, webhookRequest(t, paidEvent("evt_4", "txn_unknown", ""), testSecret))
	assert.Equal(t, fiber.StatusOK, status)

	var grants, events int64
	require.NoError(t, ts.db.Model(&models.Access{}).Count(&grants).Error)
	assert.Zero(t, grants)
	require.NoError(t, ts.db.Model(&models.PaymentWebhookEvent{}).Count(&events).Error)
	assert.Zero(t, events)
}

func TestHandlePaddleWebhookStoreFailure(t *testing.T) {
	ts := newTestServer(t)

	status, out := ts.do(t, jsonRequest(http.MethodPost, "/api/orders/checkout", `{"userEmail":"ana@example.com","videoId":8}`))
	require.Equal(t, fiber.StatusOK, status)
	orderID := out["orderId"].(string)

	require.NoError(t, ts.db.Migrator().DropTable(&models.Access{}))

	status, out = ts.do(t, webhookRequest(t, paidEvent("evt_5", "txn_ctrl", orderID), testSecret))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, commerce.CodeAccessGrantFailed, out["error"])
}
