package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/videopass/internal/pkg/commerce"
	"github.com/ManuelReschke/videopass/internal/pkg/playback"
)

// ShopController serves the buyer-facing order endpoints.
type ShopController struct {
	catalog  *commerce.Catalog
	orders   *commerce.OrderService
	gate     *commerce.AccessGate
	playback *playback.Service
}

func NewShopController(catalog *commerce.Catalog, orders *commerce.OrderService, gate *commerce.AccessGate, playback *playback.Service) *ShopController {
	return &ShopController{
		catalog:  catalog,
		orders:   orders,
		gate:     gate,
		playback: playback,
	}
}

// HandleListVideos returns the catalog.
func (sc *ShopController) HandleListVideos(c *fiber.Ctx) error {
	videos, err := sc.catalog.ListVideos(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"videos": videos})
}

type checkoutRequest struct {
	UserEmail string  `json:"userEmail"`
	VideoID   videoID `json:"videoId"`
}

// HandleCheckout creates a pending order and returns the Paddle checkout.
func (sc *ShopController) HandleCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid_request")
	}
	if req.UserEmail == "" || req.VideoID == 0 {
		return badRequest(c, "missing_parameters")
	}

	res, err := sc.orders.CreateCheckout(c.UserContext(), req.UserEmail, uint(req.VideoID))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// HandleAccessCheck answers GET /access/check?userEmail=&videoId=.
func (sc *ShopController) HandleAccessCheck(c *fiber.Ctx) error {
	email := c.Query("userEmail")
	rawID := c.Query("videoId")
	if email == "" || rawID == "" {
		return badRequest(c, "missing_parameters")
	}
	id, err := parseVideoID(rawID)
	if err != nil || id == 0 {
		return badRequest(c, commerce.CodeInvalidVideoID)
	}

	ok, err := sc.gate.CheckAccess(c.UserContext(), email, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"hasAccess": ok})
}

// HandlePlayback returns a playable URL for a purchased video.
func (sc *ShopController) HandlePlayback(c *fiber.Ctx) error {
	email := c.Query("userEmail")
	if email == "" {
		return badRequest(c, "missing_parameters")
	}
	id, err := parseVideoID(c.Params("id"))
	if err != nil || id == 0 {
		return badRequest(c, commerce.CodeInvalidVideoID)
	}

	link, err := sc.playback.Resolve(c.UserContext(), email, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(link)
}
