package utils

import "github.com/gofiber/fiber/v2"

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// ErrorWithCode adds a stable machine-readable code to the error envelope.
// Extra fields are merged into the body.
func ErrorWithCode(c *fiber.Ctx, status int, code, message string, extra fiber.Map) error {
	body := fiber.Map{
		"success": false,
		"error":   message,
		"code":    code,
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}
