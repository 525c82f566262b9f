package billing

import (
	"fmt"
	"strings"
)

const (
	EventTransactionPaid      = "transaction.paid"
	EventTransactionCompleted = "transaction.completed"
)

// IsActionableEvent reports whether the event type confirms a payment.
func IsActionableEvent(eventType string) bool {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case EventTransactionPaid, EventTransactionCompleted:
		return true
	}
	return false
}

// CustomData is the correlation block attached to every transaction at
// checkout and echoed back in webhook deliveries.
type CustomData struct {
	OrderID string
	UserID  uint
	VideoID uint
}

// TransactionRequest is the input for creating a hosted checkout.
type TransactionRequest struct {
	PriceID       string
	Quantity      int
	CustomerEmail string
	CustomData    CustomData
}

// Transaction is the subset of a Paddle transaction the checkout needs.
type Transaction struct {
	ID          string
	Status      string
	CheckoutURL string
}

// APIError is a non-2xx answer from the Paddle API.
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" || e.Detail != "" {
		return fmt.Sprintf("paddle api error: status=%d code=%s detail=%s", e.StatusCode, e.Code, e.Detail)
	}
	return fmt.Sprintf("paddle api error: status=%d body=%s", e.StatusCode, e.Body)
}
