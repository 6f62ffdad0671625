package validation

import (
	"net/mail"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/analysis"
)

const (
	targetKey      = "analysis_target"
	credentialsKey = "credentials"
)

type Config struct {
	MaxURLLength     int
	MaxKeywordLength int
	MaxAppIDLength   int
	Logger           *zap.Logger
}

type analyzeBody struct {
	URL     *string `json:"url"`
	Keyword *string `json:"keyword"`
	AppID   *string `json:"app_id"`
}

// Credentials is the body of /register and /login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func requireJSON(c *fiber.Ctx) error {
	contentType := c.Get(fiber.HeaderContentType)
	if contentType != "" && !strings.HasPrefix(strings.ToLower(contentType), fiber.MIMEApplicationJSON) {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error": "Unsupported content type",
		})
	}
	return nil
}

// AnalyzeBody checks the shape of an analyze request. Malformed JSON is a
// 400; a field that is present but unusable is a 422. Whether the URL/app id
// combination makes sense is left to the analysis service.
func AnalyzeBody(cfg Config) fiber.Handler {
	if cfg.MaxURLLength == 0 {
		cfg.MaxURLLength = 2048
	}
	if cfg.MaxKeywordLength == 0 {
		cfg.MaxKeywordLength = 512
	}
	if cfg.MaxAppIDLength == 0 {
		cfg.MaxAppIDLength = 255
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if err := requireJSON(c); err != nil {
			return err
		}

		var body analyzeBody
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		target := analysis.Target{
			URL:     sanitizeString(deref(body.URL)),
			Keyword: sanitizeString(deref(body.Keyword)),
			AppID:   sanitizeString(deref(body.AppID)),
		}

		switch {
		case len(target.URL) > cfg.MaxURLLength:
			return unprocessable(c, "URL exceeds maximum length")
		case len(target.Keyword) > cfg.MaxKeywordLength:
			return unprocessable(c, "Keyword exceeds maximum length")
		case len(target.AppID) > cfg.MaxAppIDLength:
			return unprocessable(c, "App ID exceeds maximum length")
		case target.URL != "" && !isValidURL(target.URL):
			cfg.Logger.Debug("Rejected analyze URL", zap.String("ip", c.IP()), zap.String("url", target.URL))
			return unprocessable(c, "URL must be an absolute http or https URL")
		}

		c.Locals(targetKey, target)
		return c.Next()
	}
}

// Target returns the request parsed by AnalyzeBody.
func Target(c *fiber.Ctx) (analysis.Target, bool) {
	t, ok := c.Locals(targetKey).(analysis.Target)
	return t, ok
}

// CredentialsBody checks an email/password body.
func CredentialsBody() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := requireJSON(c); err != nil {
			return err
		}

		var creds Credentials
		if err := c.BodyParser(&creds); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
		if !isValidEmail(creds.Email) {
			return unprocessable(c, "A valid email address is required")
		}
		// bcrypt ignores everything past 72 bytes.
		if creds.Password == "" || len(creds.Password) > 72 {
			return unprocessable(c, "Password must be between 1 and 72 bytes")
		}

		c.Locals(credentialsKey, creds)
		return c.Next()
	}
}

func CredentialsFrom(c *fiber.Ctx) (Credentials, bool) {
	creds, ok := c.Locals(credentialsKey).(Credentials)
	return creds, ok
}

func unprocessable(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": msg})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}

func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if u.Host == "" {
		return false
	}

	return true
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@")+1:], ".")
}
