package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestRateLimiter_Windows(t *testing.T) {
	clk := &clock{t: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(2, 3, 0, true)
	rl.now = clk.now

	allowed := func() bool {
		ok, _ := rl.Allow()
		return ok
	}

	assert.True(t, allowed())
	clk.t = clk.t.Add(10 * time.Second)
	assert.True(t, allowed())

	ok, retry := rl.Allow()
	assert.False(t, ok, "minute limit")
	assert.Equal(t, 50*time.Second, retry)

	clk.t = clk.t.Add(61 * time.Second)
	assert.True(t, allowed())
	ok, retry = rl.Allow()
	assert.False(t, ok, "hour limit")
	assert.Greater(t, retry, 58*time.Minute)

	remaining := rl.Remaining()
	assert.Equal(t, 1, remaining[time.Minute])
	assert.Equal(t, 0, remaining[time.Hour])
	_, hasDay := remaining[24*time.Hour]
	assert.False(t, hasDay, "disabled window is not reported")

	clk.t = clk.t.Add(time.Hour)
	assert.True(t, allowed())
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(1, 1, 1, false)
	for i := 0; i < 5; i++ {
		ok, _ := rl.Allow()
		assert.True(t, ok)
	}
}

func TestKeyedLimiter(t *testing.T) {
	clk := &clock{t: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)}
	k := NewKeyedLimiter(1, 0, 0, true)
	k.now = clk.now

	ok, _ := k.Allow("a")
	assert.True(t, ok)
	ok, _ = k.Allow("a")
	assert.False(t, ok)
	ok, _ = k.Allow("b")
	assert.True(t, ok, "separate budget per key")

	assert.Zero(t, k.Prune())
	clk.t = clk.t.Add(25 * time.Hour)
	assert.Equal(t, 2, k.Prune())
}

func TestKeyedLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clk := &clock{t: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)}
	k := NewKeyedLimiter(1, 0, 0, true)
	k.now = clk.now
	r := gin.New()
	r.POST("/req", k.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/req", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, call().Code)
	clk.t = clk.t.Add(20500 * time.Millisecond)
	w := call()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "40", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"detail":"Too many requests"}`, w.Body.String())
}
