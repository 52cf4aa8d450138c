package handlers

import (
	"errors"
	"strings"

	"github.com/docshare/drive/internal/services"
	"github.com/docshare/drive/pkg/logger"
	"github.com/docshare/drive/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// Order matters only for readability; service errors carry one sentinel each.
var errorMappings = []errorMapping{
	{services.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "resource not found"},
	{services.ErrPermissionDenied, fiber.StatusForbidden, "PERMISSION_DENIED", "insufficient permissions"},
	{services.ErrInvalidMove, fiber.StatusBadRequest, "INVALID_MOVE", "cannot move a folder into itself or its descendants"},
	{services.ErrConflict, fiber.StatusConflict, "CONFLICT", "conflicting change, please retry"},
	{services.ErrExpired, fiber.StatusGone, "LINK_EXPIRED", "link has expired"},
	{services.ErrInvalidPassword, fiber.StatusUnauthorized, "INVALID_PASSWORD", "invalid password"},
	{services.ErrValidation, fiber.StatusBadRequest, "VALIDATION_ERROR", ""},
	{services.ErrTransient, fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", "storage temporarily unavailable, please retry"},
	{services.ErrIntegrity, fiber.StatusInternalServerError, "INTEGRITY_ERROR", "data integrity error"},
}

// respondError writes the error envelope for a service error.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		message := m.message
		switch m.err {
		case services.ErrValidation, services.ErrConflict:
			message = detail(err, m.err)
		case services.ErrTransient, services.ErrIntegrity:
			logger.ErrorWithUser(actorString(c), "request_failed", err, map[string]interface{}{
				"path":   c.Path(),
				"method": c.Method(),
				"code":   m.code,
			})
		}
		return utils.ErrorWithCode(c, m.status, m.code, message, nil)
	}

	logger.ErrorWithUser(actorString(c), "unhandled_error", err, map[string]interface{}{
		"path":   c.Path(),
		"method": c.Method(),
	})
	return utils.ErrorWithCode(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
}

// detail strips the sentinel prefix from a wrapped error's message.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
