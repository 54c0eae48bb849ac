package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name     string
		ping     func(ctx context.Context) error
		status   int
		database string
	}{
		{"memory store", nil, fiber.StatusOK, "n/a"},
		{"database up", func(context.Context) error { return nil }, fiber.StatusOK, "up"},
		{"database down", func(context.Context) error { return errors.New("refused") }, fiber.StatusServiceUnavailable, "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", NewHealthHandler("test", "postgres", "redis", tt.ping).Check)

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.database, body["database"])
			assert.Equal(t, "redis", body["locker"])
		})
	}
}
