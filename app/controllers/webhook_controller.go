package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/videopass/internal/pkg/billing"
	"github.com/ManuelReschke/videopass/internal/pkg/commerce"
)

const webhookTimeout = 15 * time.Second

type WebhookController struct {
	reconciler *commerce.Reconciler
}

func NewWebhookController(reconciler *commerce.Reconciler) *WebhookController {
	return &WebhookController{reconciler: reconciler}
}

// HandlePaddleWebhook verifies and applies a Paddle notification. Paddle
// retries anything that is not a 2xx.
func (wc *WebhookController) HandlePaddleWebhook(c *fiber.Ctx) error {
	// signature covers the exact bytes Paddle sent
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	if _, err := wc.reconciler.HandleDelivery(ctx, rawBody, c.Get(billing.PaddleSignatureHeader)); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
