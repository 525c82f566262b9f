package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedEvent = errors.New("malformed webhook event")

// PaddleWebhookEvent is the part of a Paddle notification the reconciler
// reads.
type PaddleWebhookEvent struct {
	EventID        string
	NotificationID string
	EventType      string
	OccurredAt     string
	TransactionID  string
	Status         string
	CustomData     CustomData
}

// looseID decodes ids that may arrive as JSON strings or numbers.
type looseID string

func (l *looseID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = looseID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*l = looseID(n.String())
	return nil
}

func (l looseID) uint() uint {
	n, err := strconv.ParseUint(string(l), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

func ParsePaddleWebhookEvent(payload []byte) (*PaddleWebhookEvent, error) {
	var raw struct {
		EventID        string `json:"event_id"`
		NotificationID string `json:"notification_id"`
		EventType      string `json:"event_type"`
		OccurredAt     string `json:"occurred_at"`
		Data           struct {
			ID         string `json:"id"`
			Status     string `json:"status"`
			CustomData *struct {
				OrderID looseID `json:"orderId"`
				UserID  looseID `json:"userId"`
				VideoID looseID `json:"videoId"`
			} `json:"custom_data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ev := &PaddleWebhookEvent{
		EventID:        strings.TrimSpace(raw.EventID),
		NotificationID: strings.TrimSpace(raw.NotificationID),
		EventType:      strings.ToLower(strings.TrimSpace(raw.EventType)),
		OccurredAt:     raw.OccurredAt,
		TransactionID:  strings.TrimSpace(raw.Data.ID),
		Status:         strings.TrimSpace(raw.Data.Status),
	}
	if cd := raw.Data.CustomData; cd != nil {
		ev.CustomData = CustomData{
			OrderID: string(cd.OrderID),
			UserID:  cd.UserID.uint(),
			VideoID: cd.VideoID.uint(),
		}
	}
	return ev, nil
}
