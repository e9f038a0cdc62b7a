package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"targetview/pkg/controller"
	"targetview/pkg/model"
)

func testInventory() model.Inventory {
	return model.Inventory{
		ActiveTargets: []model.ActiveTarget{
			{
				ScrapePool: "job1",
				DiscoveredLabels: model.LabelMap{
					"instance":    "a:9090",
					"__address__": "a:9090",
				},
				Labels: model.LabelMap{"instance": "a:9090"},
			},
			{
				ScrapePool: "job1",
				DiscoveredLabels: model.LabelMap{
					"instance":    "b:9191",
					"__address__": "b:9191",
				},
				Labels: model.LabelMap{"instance": "b:9191"},
			},
		},
		DroppedTargets: []model.DroppedTarget{
			{DiscoveredLabels: model.LabelMap{"job": "job2", "instance": "c:9090"}},
		},
		DroppedTargetCounts: map[string]int{"job1": 2},
	}
}

func newTestServer(t *testing.T) (*Server, *mux.Router, *controller.MemoryQueryStore) {
	t.Helper()
	store := controller.NewMemoryQueryStore("")
	ctrl := controller.NewFilterController(store, "job")
	ctrl.SetInventory(testInventory())

	server := NewServer(":0", ctrl, "test")
	router := mux.NewRouter()
	server.RegisterRoutes("/api/v1", router)
	return server, router, store
}

func doRequest(router *mux.Router, url string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type viewPayload struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Data   struct {
		Query     string                               `json:"query"`
		Summary   map[string]model.PoolSummary         `json:"summary"`
		Pools     map[string][]model.TargetLabelRecord `json:"pools"`
		PoolOrder []string                             `json:"poolOrder"`
	} `json:"data"`
}

func TestGetTargetsHandler_FullView(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := doRequest(router, "/api/v1/targets")
	require.Equal(t, http.StatusOK, w.Code)

	var resp viewPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "success", resp.Status)
	require.Equal(t, model.PoolSummary{Active: 2, Total: 4}, resp.Data.Summary["job1"])
	require.Len(t, resp.Data.Pools["job1"], 2)
	require.Len(t, resp.Data.Pools["job2"], 1)
	require.True(t, resp.Data.Pools["job2"][0].IsDropped)
	require.Equal(t, []string{"job1", "job2"}, resp.Data.PoolOrder)
}

func TestGetTargetsHandler_SearchFiltersAndPersists(t *testing.T) {
	_, router, store := newTestServer(t)

	w := doRequest(router, "/api/v1/targets?search=b%3A9191")
	require.Equal(t, http.StatusOK, w.Code)

	var resp viewPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "b:9191", resp.Data.Query)
	require.Equal(t, 1, resp.Data.Summary["job1"].Active)
	require.Len(t, resp.Data.Pools["job1"], 1)

	// Write-through persistence.
	require.Equal(t, "b:9191", store.Read())
}

func TestGetTargetsHandler_EmptySearchResets(t *testing.T) {
	_, router, _ := newTestServer(t)

	_ = doRequest(router, "/api/v1/targets?search=b%3A9191")
	w := doRequest(router, "/api/v1/targets?search=")
	require.Equal(t, http.StatusOK, w.Code)

	var resp viewPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Data.Summary["job1"].Active)
	require.Len(t, resp.Data.Pools["job2"], 1)
}

func TestGetTargetsHandler_NoSearchParamKeepsQuery(t *testing.T) {
	_, router, _ := newTestServer(t)

	_ = doRequest(router, "/api/v1/targets?search=b%3A9191")
	w := doRequest(router, "/api/v1/targets")

	var resp viewPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "b:9191", resp.Data.Query)
	require.Equal(t, 1, resp.Data.Summary["job1"].Active)
}

func TestGetSummaryHandler(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := doRequest(router, "/api/v1/targets/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string                       `json:"status"`
		Data   map[string]model.PoolSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, model.PoolSummary{Active: 2, Total: 4}, resp.Data["job1"])
}

func TestGetPoolTargetsHandler(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := doRequest(router, "/api/v1/pools/job2/targets")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string                    `json:"status"`
		Data   []model.TargetLabelRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.True(t, resp.Data[0].IsDropped)
	require.Equal(t, "c:9090", resp.Data[0].DiscoveredLabels["instance"])
}

func TestGetPoolTargetsHandler_UnknownPool(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := doRequest(router, "/api/v1/pools/nope/targets")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTargetsHandler_LoadingState(t *testing.T) {
	ctrl := controller.NewFilterController(controller.NewMemoryQueryStore(""), "job")
	server := NewServer(":0", ctrl, "test")
	router := mux.NewRouter()
	server.RegisterRoutes("/api/v1", router)

	w := doRequest(router, "/api/v1/targets")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "loading", resp.Status)
}

func TestTargetsHandler_ErrorState(t *testing.T) {
	ctrl := controller.NewFilterController(controller.NewMemoryQueryStore(""), "job")
	ctrl.SetFetchError(errFake{})
	server := NewServer(":0", ctrl, "test")
	router := mux.NewRouter()
	server.RegisterRoutes("/api/v1", router)

	w := doRequest(router, "/api/v1/targets")
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "error", resp.Status)
	require.Equal(t, "fetch exploded", resp.Error)
}

func TestStatusHandler(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := doRequest(router, "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string     `json:"status"`
		Data   statusData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "success", resp.Status)
	require.Equal(t, "ready", resp.Data.FetchState)
	require.Equal(t, "test", resp.Data.Version)
	require.Greater(t, resp.Data.Goroutines, 0)
}

func TestRouteRegistration(t *testing.T) {
	_, router, _ := newTestServer(t)

	for _, url := range []string{
		"/api/v1/targets",
		"/api/v1/targets/summary",
		"/api/v1/pools/job1/targets",
		"/api/v1/status",
	} {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		match := &mux.RouteMatch{}
		require.True(t, router.Match(req, match), url)
	}
}

type errFake struct{}

func (errFake) Error() string { return "fetch exploded" }
