// Package fetch loads the scrape-target inventory from the monitoring
// server's targets resource. Loading and error states are owned here and
// surfaced to the controller as a tri-state; the aggregation and search
// layers never see a partial payload.
package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"targetview/pkg/config"
	"targetview/pkg/k8s"
	"targetview/pkg/model"
	"targetview/tools/util/logutil"
)

const serviceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// Publisher receives fetch results. Implemented by the filter
// controller.
type Publisher interface {
	SetInventory(inv model.Inventory)
	SetFetchError(err error)
}

// inventoryEnvelope is the wire shape of the targets resource.
type inventoryEnvelope struct {
	Status string          `json:"status"`
	Data   model.Inventory `json:"data"`
	Error  string          `json:"error,omitempty"`
}

// Fetcher periodically loads the inventory and publishes it. One fetch
// is in flight at a time; a failed cycle publishes the error and waits
// for the next tick, there are no retries in between.
type Fetcher struct {
	url       string
	tokenFile string
	interval  time.Duration
	client    *http.Client
	publisher Publisher
	stopCh    chan struct{}
}

// NewFetcher builds a fetcher from the agent configuration.
func NewFetcher(conf *config.ConfigManager, publisher Publisher) (*Fetcher, error) {
	url := conf.GetInventoryURL()
	if url == "" {
		return nil, fmt.Errorf("inventory.url is not configured")
	}

	seconds, err := conf.ParseInterval(conf.GetRefreshInterval())
	if err != nil {
		return nil, fmt.Errorf("invalid inventory.refresh_interval: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	if tlsConfig := ParseTLSConfig(conf.GetTLSConfig()); tlsConfig != nil {
		clientTLS, err := buildTLSClientConfig(tlsConfig)
		if err != nil {
			return nil, err
		}
		client.Transport = &http.Transport{TLSClientConfig: clientTLS}
	}

	return &Fetcher{
		url:       FormatURL(url),
		tokenFile: conf.GetBearerTokenFile(),
		interval:  time.Duration(seconds) * time.Second,
		client:    client,
		publisher: publisher,
		stopCh:    make(chan struct{}),
	}, nil
}

// FormatURL ensures the URL has a scheme (http:// by default).
func FormatURL(target string) string {
	if target == "" {
		return target
	}

	target = strings.TrimSpace(target)
	lower := strings.ToLower(target)

	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "http://" + target
	}
	return target
}

// Start runs the fetch loop until Stop is called. The first fetch runs
// immediately so the view leaves the loading state as soon as possible.
func (f *Fetcher) Start() {
	f.fetchAndPublish()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.fetchAndPublish()
		case <-f.stopCh:
			logutil.Infof("FETCH", "Inventory fetch loop stopped")
			return
		}
	}
}

// Stop terminates the fetch loop.
func (f *Fetcher) Stop() {
	close(f.stopCh)
}

func (f *Fetcher) fetchAndPublish() {
	inv, err := f.FetchInventory()
	if err != nil {
		logutil.Errorf("FETCH", "Inventory fetch failed: %v", err)
		f.publisher.SetFetchError(err)
		return
	}
	f.publisher.SetInventory(*inv)
}

// FetchInventory performs one GET of the targets resource and decodes
// the payload.
func (f *Fetcher) FetchInventory() (*model.Inventory, error) {
	if config.IsDebugEnabled() {
		logutil.Debugf("FETCH", "HTTP Request: GET %s", f.url)
	}

	req, err := http.NewRequest(http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	if token := f.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	startTime := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	if config.IsDebugEnabled() {
		logutil.Debugf("FETCH", "HTTP Response: %d %s (%d bytes, took %v)",
			resp.StatusCode, resp.Status, len(body), time.Since(startTime))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var envelope inventoryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("error parsing inventory payload: %v", err)
	}
	if envelope.Status != "success" {
		return nil, fmt.Errorf("inventory endpoint returned status %q: %s", envelope.Status, envelope.Error)
	}

	// Sparse payloads omit empty collections; downstream always sees
	// non-nil ones.
	inv := model.NewInventory()
	if envelope.Data.ActiveTargets != nil {
		inv.ActiveTargets = envelope.Data.ActiveTargets
	}
	if envelope.Data.DroppedTargets != nil {
		inv.DroppedTargets = envelope.Data.DroppedTargets
	}
	if envelope.Data.DroppedTargetCounts != nil {
		inv.DroppedTargetCounts = envelope.Data.DroppedTargetCounts
	}
	return inv, nil
}

// bearerToken resolves the token to send: a configured token file wins,
// otherwise the service account token when running in-cluster.
func (f *Fetcher) bearerToken() string {
	tokenFile := f.tokenFile
	if tokenFile == "" {
		if !k8s.GetInstance().IsInCluster() {
			return ""
		}
		tokenFile = serviceAccountTokenPath
	}

	data, err := os.ReadFile(tokenFile)
	if err != nil {
		if config.IsDebugEnabled() {
			logutil.Debugf("FETCH", "No bearer token available: %v", err)
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}
