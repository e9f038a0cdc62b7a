package fetch

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"targetview/pkg/config"
	"targetview/pkg/k8s"
	"targetview/tools/util/logutil"
)

// SecretKeySelector defines a reference to a key inside a Kubernetes
// Secret.
type SecretKeySelector struct {
	Name      string `json:"name" yaml:"name"`
	Key       string `json:"key" yaml:"key"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TLSConfig represents the TLS options of the inventory endpoint.
type TLSConfig struct {
	// InsecureSkipVerify disables server certificate validation
	InsecureSkipVerify bool `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty"`

	// CA certificate file path (alternative to CASecret)
	CAFile string `json:"caFile,omitempty" yaml:"caFile,omitempty"`

	// CA certificate via Kubernetes Secret (alternative to CAFile)
	CASecret *SecretKeySelector `json:"caSecret,omitempty" yaml:"caSecret,omitempty"`

	// ServerName extension to indicate the name of the server
	ServerName string `json:"serverName,omitempty" yaml:"serverName,omitempty"`
}

// Validate checks the TLS configuration for consistency.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if c.CAFile != "" && c.CASecret != nil {
		return fmt.Errorf("at most one of caFile and caSecret must be configured")
	}
	if c.CASecret != nil && (c.CASecret.Name == "" || c.CASecret.Key == "") {
		return fmt.Errorf("caSecret must have both name and key specified")
	}
	return nil
}

// ParseTLSConfig builds a TLSConfig from the raw config map of the
// inventory tls block. Nil in, nil out.
func ParseTLSConfig(raw map[string]interface{}) *TLSConfig {
	if raw == nil {
		return nil
	}
	c := &TLSConfig{}
	if v, ok := raw["insecureSkipVerify"].(bool); ok {
		c.InsecureSkipVerify = v
	}
	if v, ok := raw["caFile"].(string); ok {
		c.CAFile = v
	}
	if v, ok := raw["serverName"].(string); ok {
		c.ServerName = v
	}
	if secret, ok := raw["caSecret"].(map[string]interface{}); ok {
		sel := &SecretKeySelector{}
		if name, ok := secret["name"].(string); ok {
			sel.Name = name
		}
		if key, ok := secret["key"].(string); ok {
			sel.Key = key
		}
		if ns, ok := secret["namespace"].(string); ok {
			sel.Namespace = ns
		}
		c.CASecret = sel
	}
	return c
}

// buildTLSClientConfig turns the validated TLSConfig into a tls.Config.
func buildTLSClientConfig(tlsConfig *TLSConfig) (*tls.Config, error) {
	if err := tlsConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %v", err)
	}

	out := &tls.Config{
		InsecureSkipVerify: tlsConfig.InsecureSkipVerify,
		ServerName:         tlsConfig.ServerName,
	}
	if tlsConfig.InsecureSkipVerify {
		return out, nil
	}

	rootCAs, _ := x509.SystemCertPool()
	if rootCAs == nil {
		rootCAs = x509.NewCertPool()
	}

	var caData []byte
	var err error
	switch {
	case tlsConfig.CAFile != "":
		caData, err = os.ReadFile(tlsConfig.CAFile)
		if err != nil {
			return nil, fmt.Errorf("error reading CA certificate file %s: %v", tlsConfig.CAFile, err)
		}
	case tlsConfig.CASecret != nil:
		caData, err = loadCertificateFromSecret(tlsConfig.CASecret)
		if err != nil {
			return nil, err
		}
	}

	if len(caData) > 0 {
		if !rootCAs.AppendCertsFromPEM(caData) {
			return nil, fmt.Errorf("failed to parse configured CA certificate")
		}
		if config.IsDebugEnabled() {
			logutil.Debugf("FETCH", "Added configured CA certificate to root pool")
		}
	}

	out.RootCAs = rootCAs
	return out, nil
}

// loadCertificateFromSecret loads certificate data from a Kubernetes
// Secret.
func loadCertificateFromSecret(selector *SecretKeySelector) ([]byte, error) {
	k8sClient := k8s.GetInstance()
	if !k8sClient.IsInitialized() {
		return nil, fmt.Errorf("kubernetes client not initialized")
	}

	namespace := selector.Namespace
	if namespace == "" {
		namespace = "default"
	}

	secret, err := k8sClient.GetSecret(namespace, selector.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s/%s: %v", namespace, selector.Name, err)
	}

	data, ok := secret.Data[selector.Key]
	if !ok || len(data) == 0 {
		return nil, fmt.Errorf("key %s not found or empty in secret %s/%s", selector.Key, namespace, selector.Name)
	}
	return data, nil
}
