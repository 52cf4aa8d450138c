package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docshare/drive/internal/middleware"
	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// parseRef reads a resource reference from the :type and :id route params.
func parseRef(c *fiber.Ctx) (models.ResourceRef, error) {
	resourceType, err := models.ParseResourceType(c.Params("type"))
	if err != nil {
		return models.ResourceRef{}, err
	}
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return models.ResourceRef{}, fmt.Errorf("invalid resource id")
	}
	return models.ResourceRef{Type: resourceType, ID: id}, nil
}

// bind parses the JSON body into dst and validates its struct tags. It writes
// the 400 response itself and returns false when the request is rejected.
func bind(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
	}
	if err := validate.Struct(dst); err != nil {
		return false, utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err), nil)
	}
	return true, nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request body"
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "email":
		return field + " must be a valid email"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func unauthorized(c *fiber.Ctx) error {
	return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "unauthorized", nil)
}

func actorString(c *fiber.Ctx) string {
	if user := middleware.GetCurrentUser(c); user != nil {
		return user.ID.String()
	}
	return "anonymous"
}
