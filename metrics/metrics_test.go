package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersMove(t *testing.T) {
	before := testutil.ToFloat64(settlements.WithLabelValues("win"))
	Settled("win")
	assert.Equal(t, before+1, testutil.ToFloat64(settlements.WithLabelValues("win")))

	before = testutil.ToFloat64(creditsDebited.WithLabelValues("move"))
	CreditsDebited("move", 0.025)
	assert.InDelta(t, before+0.025, testutil.ToFloat64(creditsDebited.WithLabelValues("move")), 1e-9)

	before = testutil.ToFloat64(archiveRuns.WithLabelValues("false"))
	ArchiveUpload(false)
	assert.Equal(t, before+1, testutil.ToFloat64(archiveRuns.WithLabelValues("false")))
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/games/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/metrics", FiberHandler())

	counter := httpRequests.WithLabelValues(http.MethodGet, "/games/:id", "204")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/games/"+id, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "game_session_engine_http_requests_total")
}
