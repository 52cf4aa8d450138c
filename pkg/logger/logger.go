package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

type Options struct {
	Level     string
	Format    string
	SentryDSN string
	Output    io.Writer
}

var globalLogger *slog.Logger

// Init configures a JSON logger on stdout at info level.
func Init() {
	Setup(Options{})
}

// Setup builds the global logger. Error records are also forwarded to Sentry
// when a DSN is configured and the client initializes.
func Setup(opts Options) {
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	var handlers []slog.Handler
	if opts.Format == "text" {
		handlers = append(handlers, slog.NewTextHandler(output, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(output, handlerOpts))
	}

	var sentryErr error
	if opts.SentryDSN != "" {
		sentryErr = sentry.Init(sentry.ClientOptions{Dsn: opts.SentryDSN})
		if sentryErr == nil {
			handlers = append(handlers, slogsentry.Option{
				Level: slog.LevelError,
			}.NewSentryHandler())
		}
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = slogmulti.Fanout(handlers...)
	} else {
		handler = handlers[0]
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	if sentryErr != nil {
		log(slog.LevelWarn, "sentry_init_failed", nil, map[string]interface{}{"forwarding": false}, sentryErr)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func log(level slog.Level, action string, userID *string, details map[string]interface{}, err error) {
	if globalLogger == nil {
		return
	}
	attrs := make([]slog.Attr, 0, 3)
	if userID != nil {
		attrs = append(attrs, slog.String("user_id", *userID))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if len(details) > 0 {
		attrs = append(attrs, slog.Any("details", details))
	}
	globalLogger.LogAttrs(context.Background(), level, action, attrs...)
}

func Info(action string, details map[string]interface{}) {
	log(slog.LevelInfo, action, nil, details, nil)
}

func InfoWithUser(userID string, action string, details map[string]interface{}) {
	log(slog.LevelInfo, action, &userID, details, nil)
}

func Warn(action string, details map[string]interface{}) {
	log(slog.LevelWarn, action, nil, details, nil)
}

func WarnWithUser(userID string, action string, details map[string]interface{}) {
	log(slog.LevelWarn, action, &userID, details, nil)
}

func Error(action string, err error, details map[string]interface{}) {
	log(slog.LevelError, action, nil, details, err)
}

func ErrorWithUser(userID string, action string, err error, details map[string]interface{}) {
	log(slog.LevelError, action, &userID, details, err)
}

// Flush waits for buffered Sentry events. Call it before the process exits.
func Flush() {
	sentry.Flush(2 * time.Second)
}

func GetUserIDFromContext(c *fiber.Ctx) *string {
	if userID := c.Locals("userID"); userID != nil {
		if id, ok := userID.(string); ok {
			return &id
		}
	}
	return nil
}

var sensitiveFields = []string{"password", "token", "secret", "passwordHash"}

func redactSensitiveFields(jsonMap map[string]interface{}) {
	for _, field := range sensitiveFields {
		if _, exists := jsonMap[field]; exists {
			jsonMap[field] = "[REDACTED]"
		}
	}
}

func GetRequestBodySummary(c *fiber.Ctx) string {
	body := c.Body()
	if len(body) == 0 {
		return "empty"
	}

	if len(body) > 1024 {
		return fmt.Sprintf("large (%d bytes)", len(body))
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(body, &jsonMap); err == nil {
		redactSensitiveFields(jsonMap)
		if jsonBytes, err := json.Marshal(jsonMap); err == nil {
			if len(jsonBytes) > 200 {
				return string(jsonBytes[:200]) + "..."
			}
			return string(jsonBytes)
		}
	}

	return fmt.Sprintf("binary (%d bytes)", len(body))
}

func GenerateRequestID() string {
	return uuid.New().String()
}
