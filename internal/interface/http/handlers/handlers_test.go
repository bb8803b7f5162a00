package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("1.0")

	status := c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "No health checks registered", status.Message)

	c.AddCheck("database", func(context.Context) error { return nil })
	c.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })

	status = c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, "Some checks failed: redis", status.Message)
	assert.True(t, status.Checks["database"].Healthy)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)
	assert.Equal(t, "1.0", status.Version)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("1.0")
	c.SetTimeout(10 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Checks["slow"].Message, "deadline")
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestNewPingCheck(t *testing.T) {
	check := NewPingCheck(pingFunc(func(context.Context) error { return errors.New("no") }))
	assert.EqualError(t, check(context.Background()), "no")
}

func TestDeviceKeyAuth(t *testing.T) {
	_, err := NewDeviceKeyAuth(nil)
	assert.ErrorIs(t, err, ErrNoKeyHashes)

	_, err = NewDeviceKeyAuth([]string{"not-a-hash"})
	assert.Error(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("k1"), bcrypt.MinCost)
	require.NoError(t, err)
	auth, err := NewDeviceKeyAuth([]string{string(hash)})
	require.NoError(t, err)

	assert.False(t, auth.IsValid(""))
	assert.False(t, auth.IsValid("k2"))
	assert.True(t, auth.IsValid("k1"))
	assert.Equal(t, 1, auth.verified.Len())
	assert.True(t, auth.IsValid("k1"))
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	h := RequestSizeLimitMiddleware(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") }), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "h"}, order)
}
