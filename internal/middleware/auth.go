package middleware

import (
	"errors"
	"strings"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/pkg/logger"
	"github.com/docshare/drive/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const (
	currentUserKey = "currentUser"
	userIDKey      = "userID"
)

type AuthMiddleware struct {
	Store repository.Store
}

func NewAuthMiddleware(store repository.Store) *AuthMiddleware {
	return &AuthMiddleware{Store: store}
}

func CORS(origins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Link-Password",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	})
}

func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		logger.Warn("jwt_missing_header", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "missing authorization header", nil)
	}

	tokenString, ok := bearerToken(authHeader)
	if !ok {
		logger.Warn("jwt_invalid_format", map[string]interface{}{
			"ip":          c.IP(),
			"path":        c.Path(),
			"auth_header": authHeader[:min(len(authHeader), 20)] + "...",
		})
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "invalid authorization format", nil)
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		logger.Warn("jwt_validation_failed", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "invalid or expired token", nil)
	}

	user, err := a.Store.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Error("jwt_user_lookup_failed", err, map[string]interface{}{"user_id": claims.UserID.String()})
			return utils.ErrorWithCode(c, fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", "please retry", nil)
		}
		logger.Warn("jwt_user_not_found", map[string]interface{}{
			"ip":      c.IP(),
			"path":    c.Path(),
			"user_id": claims.UserID.String(),
		})
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "user not found", nil)
	}

	setCurrentUser(c, user)
	return c.Next()
}

// OptionalAuth attaches the user when a valid token is present and otherwise
// lets the request through anonymously.
func (a *AuthMiddleware) OptionalAuth(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c.Get("Authorization"))
	if !ok {
		return c.Next()
	}
	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		return c.Next()
	}
	user, err := a.Store.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Next()
	}

	setCurrentUser(c, user)
	return c.Next()
}

func bearerToken(header string) (string, bool) {
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	if token == header || token == "" {
		return "", false
	}
	return token, true
}

func setCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(currentUserKey, user)
	c.Locals(userIDKey, user.ID.String())
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	value := c.Locals(currentUserKey)
	if value == nil {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
