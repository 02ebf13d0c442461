package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	result Result
}

func (f fakeChecker) Check(ctx context.Context) Result { return f.result }
func (f fakeChecker) Type() CheckType                  { return CheckTypeTCP }

func TestRegistryCheckAllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("storage", fakeChecker{result: Result{Healthy: true, Message: "ok"}})
	r.Register("fleet", fakeChecker{result: Result{Healthy: true, Message: "ok"}})

	healthy, report := r.CheckAll(context.Background(), time.Second)
	assert.True(t, healthy)
	assert.Len(t, report, 2)
}

func TestRegistryCheckAllUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("storage", fakeChecker{result: Result{Healthy: true}})
	r.Register("fleet", fakeChecker{result: Result{Healthy: false, Message: "unreachable"}})

	healthy, report := r.CheckAll(context.Background(), time.Second)
	assert.False(t, healthy)
	assert.False(t, report["fleet"].Healthy)
}

func TestRegistryHandlerReturns503WhenUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("fleet", fakeChecker{result: Result{Healthy: false, Message: "down"}})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	r.Handler(time.Second).ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRegistryHandlerReturns200WhenHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("fleet", fakeChecker{result: Result{Healthy: true}})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	r.Handler(time.Second).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
