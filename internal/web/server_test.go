package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solflow/feerouter/internal/allocation"
	"github.com/solflow/feerouter/internal/executor"
	"github.com/solflow/feerouter/internal/types"
)

type fakeController struct {
	allocations    map[types.Channel]float64
	allocationsErr error
	featureChannel types.Channel
	featureEnabled bool
	cycleResult    types.CycleResult
	cycleErr       error
	cycles         []types.CycleResult
	cyclesErr      error
	cyclesLimit    int
	storeHealthy   bool
}

func (f *fakeController) SetAllocations(input map[types.Channel]float64) error {
	if f.allocationsErr != nil {
		return f.allocationsErr
	}
	f.allocations = input
	return nil
}

func (f *fakeController) SetFeatureEnabled(channel types.Channel, enabled bool) error {
	f.featureChannel = channel
	f.featureEnabled = enabled
	return nil
}

func (f *fakeController) RunCycle(ctx context.Context) (types.CycleResult, error) {
	return f.cycleResult, f.cycleErr
}

func (f *fakeController) Status() types.StatusReport {
	return types.StatusReport{
		Wallet:      "wallet123",
		Allocations: types.DefaultAllocations(),
		Features:    types.DefaultFeatures(),
		Stats:       types.NewCumulativeStats(),
	}
}

func (f *fakeController) RecentCycles(ctx context.Context, limit int) ([]types.CycleResult, error) {
	f.cyclesLimit = limit
	return f.cycles, f.cyclesErr
}

func (f *fakeController) StoreHealthy(ctx context.Context) bool {
	return f.storeHealthy
}

func newTestServer(controller *fakeController) *Server {
	return NewServer("0", controller, nil)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&fakeController{storeHealthy: true})

	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, true, body["database_healthy"])
}

func TestHealthDegradedWhenStoreUnreachable(t *testing.T) {
	server := newTestServer(&fakeController{storeHealthy: false})

	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "DEGRADED")
}

func TestStatusEndpoint(t *testing.T) {
	server := newTestServer(&fakeController{storeHealthy: true})

	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var report types.StatusReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "wallet123", report.Wallet)
	assert.Equal(t, 100, report.Allocations.Sum())
}

func TestSetAllocations(t *testing.T) {
	controller := &fakeController{storeHealthy: true}
	server := newTestServer(controller)

	body := `{"marketMaking":40,"buybackBurn":30,"liquidity":20,"creatorRevenue":10}`
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/allocations", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 40.0, controller.allocations[types.ChannelMarketMaking])
}

func TestSetAllocationsValidationFailure(t *testing.T) {
	controller := &fakeController{
		storeHealthy:   true,
		allocationsErr: &allocation.ValidationError{Reason: "allocations sum to 90.00, expected 100"},
	}
	server := newTestServer(controller)

	body := `{"marketMaking":90}`
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/allocations", strings.NewReader(body)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "expected 100")
}

func TestSetAllocationsMalformedBody(t *testing.T) {
	server := newTestServer(&fakeController{storeHealthy: true})

	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/allocations", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetFeature(t *testing.T) {
	controller := &fakeController{storeHealthy: true}
	server := newTestServer(controller)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/features/buybackBurn", strings.NewReader(`{"enabled":false}`))
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.ChannelBuybackBurn, controller.featureChannel)
	assert.False(t, controller.featureEnabled)
}

func TestSetFeatureUnknownChannel(t *testing.T) {
	server := newTestServer(&fakeController{storeHealthy: true})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/features/staking", strings.NewReader(`{"enabled":true}`))
	server.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDistributeEndpoint(t *testing.T) {
	controller := &fakeController{
		storeHealthy: true,
		cycleResult: types.CycleResult{
			CycleID:      uuid.New(),
			Claimed:      sdkmath.NewInt(1_000_000),
			OperatorFee:  sdkmath.NewInt(10_000),
			Distribution: types.NewDistributionResult(),
			PendingRetry: sdkmath.ZeroInt(),
		},
	}
	server := newTestServer(controller)

	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/distribute", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var result types.CycleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, controller.cycleResult.CycleID, result.CycleID)
	assert.Equal(t, "1000000", result.Claimed.String())
}

func TestDistributeConflictWhileCycleInFlight(t *testing.T) {
	server := newTestServer(&fakeController{
		storeHealthy: true,
		cycleErr:     executor.ErrCycleInFlight,
	})

	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/distribute", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetCyclesClampsLimit(t *testing.T) {
	controller := &fakeController{storeHealthy: true}
	server := newTestServer(controller)

	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/cycles?limit=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, controller.cyclesLimit, "out-of-range limits fall back to the default")
}
