package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitKey(t *testing.T) {
	now := time.Unix(1700000000, 0)
	assert.Equal(t, "rl:ip:10.0.0.1:second:1700000000", RateLimitKey("10.0.0.1", now))
}

func TestRateLimitPassThrough(t *testing.T) {
	unreachable := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer unreachable.Close()

	tests := []struct {
		name   string
		client *redis.Client
		limit  int
	}{
		{"no client", nil, 1},
		{"no limit", unreachable, 0},
		{"redis down", unreachable, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(RateLimit(tt.client, tt.limit, nil))
			app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

			for i := 0; i < 3; i++ {
				resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		})
	}
}
