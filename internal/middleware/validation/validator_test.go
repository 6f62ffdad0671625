package validation

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeApp() *fiber.App {
	app := fiber.New()
	app.Post("/analyze", AnalyzeBody(Config{}), func(c *fiber.Ctx) error {
		target, ok := Target(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(target)
	})
	return app
}

func post(t *testing.T, app *fiber.App, path, contentType, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)

	out := map[string]string{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestAnalyzeBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"valid url", "application/json", `{"url":"https://example.com","keyword":"shoes"}`, fiber.StatusOK},
		{"valid app", "application/json", `{"app_id":"com.x"}`, fiber.StatusOK},
		{"empty body passes through", "application/json", `{}`, fiber.StatusOK},
		{"malformed json", "application/json", `{"url":`, fiber.StatusBadRequest},
		{"relative url", "application/json", `{"url":"/just/a/path"}`, fiber.StatusUnprocessableEntity},
		{"ftp url", "application/json", `{"url":"ftp://example.com"}`, fiber.StatusUnprocessableEntity},
		{"long keyword", "application/json", `{"url":"https://a.com","keyword":"` + strings.Repeat("k", 600) + `"}`, fiber.StatusUnprocessableEntity},
		{"form body", "text/plain", `url=x`, fiber.StatusUnsupportedMediaType},
	}

	app := analyzeApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := post(t, app, "/analyze", tt.contentType, tt.body)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestAnalyzeBody_TrimsFields(t *testing.T) {
	status, out := post(t, analyzeApp(), "/analyze", "application/json", `{"url":"  https://example.com  ","keyword":" a, b "}`)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "https://example.com", out["url"])
	assert.Equal(t, "a, b", out["keyword"])
}

func TestCredentialsBody(t *testing.T) {
	app := fiber.New()
	app.Post("/login", CredentialsBody(), func(c *fiber.Ctx) error {
		creds, _ := CredentialsFrom(c)
		return c.JSON(fiber.Map{"email": creds.Email})
	})

	status, out := post(t, app, "/login", "application/json", `{"email":" User@Example.com ","password":"pw"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "user@example.com", out["email"])

	status, _ = post(t, app, "/login", "application/json", `{"email":"not-an-email","password":"pw"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = post(t, app, "/login", "application/json", `{"email":"a@example.com","password":""}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = post(t, app, "/login", "application/json", `not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
