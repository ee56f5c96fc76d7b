package httphandler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestThrottled_ExhaustedLimiterStillDelivers(t *testing.T) {
	// A zero burst can never grant a slot, so Wait fails at once.
	limiter := rate.NewLimiter(rate.Limit(1), 0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	calls := 0
	handler := throttled(limiter, logger, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for range 3 {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/connections/events", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 3, calls)
}
