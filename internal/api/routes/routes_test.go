package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/handyhire/internal/api/mux"
	appdispatch "github.com/ahrav/handyhire/internal/app/dispatch"
	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/infra/storage/dispatch/memory"
	"github.com/ahrav/handyhire/pkg/common/logger"
)

type client struct {
	t       *testing.T
	handler http.Handler
}

func (c client) do(method, path, body string) (int, map[string]any) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	// Unmatched routes get the mux's plain-text 404.
	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

// TestPlumberOrderOverHTTP drives one order from search to history through
// the worker and customer HTTP surfaces sharing one store.
func TestPlumberOrderOverHTTP(t *testing.T) {
	ctx := context.Background()
	log := logger.Noop()
	tracer := noop.NewTracerProvider().Tracer("test")
	store := memory.NewRecordStore()

	profiles := appdispatch.NewProfileService(store, log, tracer)
	workerID, customerID := uuid.New(), uuid.New()
	_, err := profiles.Register(ctx, workerID, dispatch.Registration{
		Role:       dispatch.RoleWorker,
		Username:   "omar",
		Profession: "Plumber",
		IsVerified: true,
	})
	require.NoError(t, err)
	_, err = profiles.Register(ctx, customerID, dispatch.Registration{
		Role:     dispatch.RoleCustomer,
		Username: "layla",
		Location: "Riyadh",
	})
	require.NoError(t, err)

	workerMetrics, err := appdispatch.NewAgentMetrics(metricnoop.NewMeterProvider(), dispatch.RoleWorker)
	require.NoError(t, err)
	customerMetrics, err := appdispatch.NewAgentMetrics(metricnoop.NewMeterProvider(), dispatch.RoleCustomer)
	require.NoError(t, err)

	workerAgent := appdispatch.NewWorkerAgent(
		appdispatch.WorkerAgentConfig{WorkerID: workerID, PollInterval: time.Second},
		store, nil, workerMetrics, log, tracer)
	customerAgent := appdispatch.NewCustomerAgent(
		appdispatch.CustomerAgentConfig{CustomerID: customerID, PollInterval: time.Second, OfferTTL: time.Minute},
		store, nil, customerMetrics, log, tracer)

	workerAPI := client{t: t, handler: mux.WebAPI(mux.Config{
		Build:  "test",
		Log:    log,
		Tracer: tracer,
		Worker: workerAgent,
	}, Routes())}
	customerAPI := client{t: t, handler: mux.WebAPI(mux.Config{
		Build:     "test",
		Log:       log,
		Tracer:    tracer,
		Customer:  customerAgent,
		ProfileID: customerID,
		Profiles:  profiles,
	}, Routes())}

	status, body := customerAPI.do(http.MethodGet, "/v1/workers?profession=Plumber", "")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["workers"], 1)

	status, body = customerAPI.do(http.MethodPost, "/v1/orders",
		fmt.Sprintf(`{"worker_id":%q,"scenario":"kitchen sink leaking"}`, workerID))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, string(dispatch.OrderPending), body["state"])

	require.NoError(t, workerAgent.Tick(ctx))
	status, body = workerAPI.do(http.MethodGet, "/v1/worker/state", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(dispatch.PhasePendingOffer), body["phase"])
	assert.Equal(t, "kitchen sink leaking", body["scenario"])

	status, body = customerAPI.do(http.MethodPut, "/v1/profile", `{"username":"layla a"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "layla a", body["username"])
	status, body = customerAPI.do(http.MethodPost, "/v1/customer/location", `{"lat":24.7,"lng":46.7}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "24.7,46.7", body["location"])

	status, body = workerAPI.do(http.MethodPost, "/v1/worker/accept", `{"price":"0"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_argument", body["code"])

	status, body = workerAPI.do(http.MethodPost, "/v1/worker/accept", `{"price":"75.50"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, string(dispatch.PhaseWorking), body["phase"])
	assert.Equal(t, "75.5", body["price"])

	require.NoError(t, customerAgent.Tick(ctx))
	status, body = customerAPI.do(http.MethodGet, "/v1/orders/current", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(dispatch.OrderAccepted), body["state"])

	status, _ = workerAPI.do(http.MethodPost, "/v1/worker/complete", "")
	require.Equal(t, http.StatusOK, status)

	status, body = customerAPI.do(http.MethodGet, "/v1/orders", "")
	require.Equal(t, http.StatusOK, status)
	orders, ok := body["orders"].([]any)
	require.True(t, ok)
	require.Len(t, orders, 1)
	order := orders[0].(map[string]any)
	assert.Equal(t, "75.5", order["price"])
	assert.Equal(t, string(dispatch.HistoryDone), order["status"])

	status, body = workerAPI.do(http.MethodPost, "/v1/worker/complete", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "failed_precondition", body["code"])

	status, body = customerAPI.do(http.MethodPost, "/v1/worker/accept", `{"price":"1"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, body)

	status, _ = workerAPI.do(http.MethodGet, "/v1/profile", "")
	assert.Equal(t, http.StatusNotFound, status, "profile routes are bound only where configured")

	status, body = workerAPI.do(http.MethodGet, "/v1/liveness", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "test", body["build"])
}
