package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

// ConfigManager is responsible for loading and parsing the agent
// configuration file ($TARGETVIEW_HOME/targetview.yaml).
type ConfigManager struct {
	mu     sync.RWMutex
	config map[string]interface{}
}

var (
	instance *ConfigManager
	once     sync.Once

	forceStandaloneMode bool
)

// SetForceStandaloneMode disables Kubernetes integration so the agent
// runs against the kubeconfig-less local environment only.
func SetForceStandaloneMode(standalone bool) {
	forceStandaloneMode = standalone
}

// IsForceStandaloneMode reports whether standalone mode was requested.
func IsForceStandaloneMode() bool {
	return forceStandaloneMode
}

// GetInstance returns the process-wide ConfigManager.
func GetInstance() *ConfigManager {
	once.Do(func() {
		instance = NewConfigManager()
	})
	return instance
}

// NewConfigManager creates a new ConfigManager instance and loads the
// configuration file. A missing file leaves all defaults in place.
func NewConfigManager() *ConfigManager {
	cm := &ConfigManager{}
	cm.LoadConfig()
	return cm
}

// Home returns the agent home directory, taken from TARGETVIEW_HOME or
// defaulting to the working directory.
func Home() string {
	homeDir := os.Getenv("TARGETVIEW_HOME")
	if homeDir == "" {
		homeDir = "."
	}
	return homeDir
}

// LoadConfig loads the configuration from the YAML file.
func (cm *ConfigManager) LoadConfig() error {
	configFile := filepath.Join(Home(), "targetview.yaml")

	data, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading configuration file: %v", err)
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("error parsing configuration file: %v", err)
	}

	cm.mu.Lock()
	cm.config = config
	cm.mu.Unlock()
	return nil
}

// section returns a nested top-level map by key, or nil.
func (cm *ConfigManager) section(name string) map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.config == nil {
		return nil
	}
	if raw, ok := cm.config[name].(map[interface{}]interface{}); ok {
		if converted, ok := convertToStringMap(raw).(map[string]interface{}); ok {
			return converted
		}
	}
	return nil
}

// GetInventoryURL returns the targets resource to fetch. Empty means the
// agent has nothing to monitor and refuses to boot.
func (cm *ConfigManager) GetInventoryURL() string {
	if inv := cm.section("inventory"); inv != nil {
		if url, ok := inv["url"].(string); ok {
			return url
		}
	}
	return ""
}

// GetRefreshInterval returns the inventory refresh interval.
func (cm *ConfigManager) GetRefreshInterval() string {
	if inv := cm.section("inventory"); inv != nil {
		if interval, ok := inv["refresh_interval"].(string); ok {
			return interval
		}
	}
	return "30s"
}

// GetBearerTokenFile returns the path of a bearer token file to send
// with inventory requests, if configured.
func (cm *ConfigManager) GetBearerTokenFile() string {
	if inv := cm.section("inventory"); inv != nil {
		if path, ok := inv["bearer_token_file"].(string); ok {
			return path
		}
	}
	return ""
}

// GetTLSConfig returns the raw tls block of the inventory section, to be
// parsed by the fetch package. Nil when not configured.
func (cm *ConfigManager) GetTLSConfig() map[string]interface{} {
	if inv := cm.section("inventory"); inv != nil {
		if raw, ok := inv["tls"].(map[string]interface{}); ok {
			return raw
		}
	}
	return nil
}

// GetListenAddress returns the bind address of the local HTTP API.
func (cm *ConfigManager) GetListenAddress() string {
	if web := cm.section("web"); web != nil {
		if addr, ok := web["listen"].(string); ok {
			return addr
		}
	}
	return ":8428"
}

// GetJobLabel returns the label name identifying a dropped target's
// owning pool.
func (cm *ConfigManager) GetJobLabel() string {
	if s := cm.section("search"); s != nil {
		if label, ok := s["job_label"].(string); ok && label != "" {
			return label
		}
	}
	return "job"
}

// GetBool returns a top-level boolean value.
func (cm *ConfigManager) GetBool(key string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.config == nil {
		return false
	}
	switch v := cm.config[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "yes" || v == "1"
	default:
		return false
	}
}

// IsDebugEnabled reports whether debug logging is on.
func IsDebugEnabled() bool {
	return GetInstance().GetBool("debug")
}

// ParseInterval parses an interval string (e.g., "15s", "1m") to seconds.
func (cm *ConfigManager) ParseInterval(intervalStr string) (int64, error) {
	if intervalStr == "" {
		return 30, nil
	}

	if strings.HasSuffix(intervalStr, "s") {
		return strconv.ParseInt(intervalStr[:len(intervalStr)-1], 10, 64)
	} else if strings.HasSuffix(intervalStr, "m") {
		minutes, err := strconv.ParseInt(intervalStr[:len(intervalStr)-1], 10, 64)
		if err != nil {
			return 0, err
		}
		return minutes * 60, nil
	}
	return strconv.ParseInt(intervalStr, 10, 64)
}

// convertToStringMap converts yaml.v2's map[interface{}]interface{}
// trees into map[string]interface{} recursively.
func convertToStringMap(value interface{}) interface{} {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{})
		for k, val := range v {
			if key, ok := k.(string); ok {
				result[key] = convertToStringMap(val)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			result[i] = convertToStringMap(val)
		}
		return result
	default:
		return v
	}
}
