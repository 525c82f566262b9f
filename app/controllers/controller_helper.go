package controllers

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/videopass/internal/pkg/commerce"
)

// statusForKind maps failure kinds to HTTP status codes.
func statusForKind(k commerce.Kind) int {
	switch k {
	case commerce.KindValidation:
		return fiber.StatusBadRequest
	case commerce.KindNotFound:
		return fiber.StatusNotFound
	case commerce.KindUnauthorized:
		return fiber.StatusUnauthorized
	case commerce.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes {"error": code}. Causes are logged by the services
// and never reach the client.
func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusForKind(commerce.KindOf(err))).JSON(fiber.Map{
		"error": commerce.CodeOf(err),
	})
}

func badRequest(c *fiber.Ctx, code string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": code})
}

// videoID accepts JSON numbers and numeric strings.
type videoID uint

func (v *videoID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = 0
		return nil
	}
	raw := string(b)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	n, err := parseVideoID(raw)
	if err != nil {
		return err
	}
	*v = videoID(n)
	return nil
}

func parseVideoID(raw string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}
