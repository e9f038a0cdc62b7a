package fetch

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"targetview/pkg/model"
)

const inventoryPayload = `{
	"status": "success",
	"data": {
		"activeTargets": [
			{
				"scrapePool": "job1",
				"discoveredLabels": {"__address__": "a:9090", "instance": "a:9090"},
				"labels": {"instance": "a:9090"}
			}
		],
		"droppedTargets": [
			{"discoveredLabels": {"job": "job2", "instance": "b:9090"}}
		],
		"droppedTargetCounts": {"job1": 2}
	}
}`

func newTestFetcher(url string) *Fetcher {
	return &Fetcher{
		url:      url,
		interval: 10 * time.Millisecond,
		client:   &http.Client{Timeout: time.Second},
		stopCh:   make(chan struct{}),
	}
}

type capturingPublisher struct {
	mu          sync.Mutex
	inventories []model.Inventory
	errors      []error
}

func (p *capturingPublisher) SetInventory(inv model.Inventory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inventories = append(p.inventories, inv)
}

func (p *capturingPublisher) SetFetchError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = append(p.errors, err)
}

func TestFetchInventory_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(inventoryPayload))
	}))
	defer server.Close()

	inv, err := newTestFetcher(server.URL).FetchInventory()
	require.NoError(t, err)

	require.Len(t, inv.ActiveTargets, 1)
	require.Equal(t, "job1", inv.ActiveTargets[0].ScrapePool)
	require.Equal(t, "a:9090", inv.ActiveTargets[0].Labels["instance"])
	require.Len(t, inv.DroppedTargets, 1)
	require.Equal(t, map[string]int{"job1": 2}, inv.DroppedTargetCounts)
}

func TestFetchInventory_EmptyPayloadGetsNonNilCollections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{}}`))
	}))
	defer server.Close()

	inv, err := newTestFetcher(server.URL).FetchInventory()
	require.NoError(t, err)
	require.NotNil(t, inv.ActiveTargets)
	require.NotNil(t, inv.DroppedTargets)
	require.NotNil(t, inv.DroppedTargetCounts)
}

func TestFetchInventory_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","error":"something broke"}`))
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).FetchInventory()
	require.Error(t, err)
	require.Contains(t, err.Error(), "something broke")
}

func TestFetchInventory_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).FetchInventory()
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestFetchInventory_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).FetchInventory()
	require.Error(t, err)
}

func TestFetcher_PublishesTriState(t *testing.T) {
	fail := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(inventoryPayload))
	}))
	defer server.Close()

	publisher := &capturingPublisher{}
	f := newTestFetcher(server.URL)
	f.publisher = publisher

	f.fetchAndPublish()
	fail = false
	f.fetchAndPublish()

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(t, publisher.errors, 1)
	require.Len(t, publisher.inventories, 1)
	require.Len(t, publisher.inventories[0].ActiveTargets, 1)
}

func TestFormatURL(t *testing.T) {
	require.Equal(t, "http://prometheus:9090/api/v1/targets", FormatURL("prometheus:9090/api/v1/targets"))
	require.Equal(t, "https://prometheus/api/v1/targets", FormatURL("https://prometheus/api/v1/targets"))
	require.Equal(t, "http://prometheus", FormatURL(" http://prometheus "))
	require.Equal(t, "", FormatURL(""))
}

func TestParseTLSConfig(t *testing.T) {
	require.Nil(t, ParseTLSConfig(nil))

	parsed := ParseTLSConfig(map[string]interface{}{
		"insecureSkipVerify": true,
		"serverName":         "prometheus.internal",
		"caSecret": map[string]interface{}{
			"name":      "prom-ca",
			"key":       "ca.crt",
			"namespace": "monitoring",
		},
	})
	require.NotNil(t, parsed)
	require.True(t, parsed.InsecureSkipVerify)
	require.Equal(t, "prometheus.internal", parsed.ServerName)
	require.Equal(t, "prom-ca", parsed.CASecret.Name)
	require.Equal(t, "ca.crt", parsed.CASecret.Key)
	require.Equal(t, "monitoring", parsed.CASecret.Namespace)
}

func TestTLSConfig_Validate(t *testing.T) {
	require.NoError(t, (*TLSConfig)(nil).Validate())
	require.NoError(t, (&TLSConfig{CAFile: "/etc/ca.crt"}).Validate())

	err := (&TLSConfig{
		CAFile:   "/etc/ca.crt",
		CASecret: &SecretKeySelector{Name: "ca", Key: "ca.crt"},
	}).Validate()
	require.Error(t, err)

	err = (&TLSConfig{CASecret: &SecretKeySelector{Name: "ca"}}).Validate()
	require.Error(t, err)
}
