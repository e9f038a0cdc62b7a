package k8s

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"targetview/tools/util/logutil"
)

// K8sClient is a thin wrapper around the Kubernetes client. The agent
// only needs it when the inventory endpoint sits inside a cluster:
// bearer-token auth and TLS material referenced by Secret.
type K8sClient struct {
	clientset   *kubernetes.Clientset
	inCluster   bool
	initialized bool
	mu          sync.RWMutex
}

var (
	instance *K8sClient
	once     sync.Once

	kubeconfigPath string
	standaloneMode bool
)

// SetKubeconfigPath sets the path to the kubeconfig file used when
// running outside a cluster.
func SetKubeconfigPath(path string) {
	kubeconfigPath = path
}

// SetStandaloneMode disables Kubernetes integration entirely.
func SetStandaloneMode(standalone bool) {
	standaloneMode = standalone
}

// GetInstance returns the singleton instance of K8sClient.
func GetInstance() *K8sClient {
	once.Do(func() {
		instance = &K8sClient{}
		if !standaloneMode {
			instance.initialize()
		}
	})
	return instance
}

func (c *K8sClient) initialize() {
	var config *rest.Config
	var err error

	config, err = rest.InClusterConfig()
	if err != nil {
		kubeconfig := kubeconfigPath
		if kubeconfig == "" {
			kubeconfig = os.Getenv("KUBECONFIG")
			if kubeconfig == "" {
				kubeconfig = filepath.Join(os.Getenv("HOME"), ".kube", "config")
			}
		}
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			logutil.Infof("K8S", "No usable Kubernetes configuration, running standalone: %v", err)
			return
		}
		logutil.Infof("K8S", "Using kubeconfig %s (host=%s)", kubeconfig, config.Host)
	} else {
		c.inCluster = true
		logutil.Infof("K8S", "Using in-cluster configuration (host=%s)", config.Host)
	}

	config.WarningHandler = rest.NoWarnings{}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		logutil.Errorf("K8S", "Error creating Kubernetes client: %v", err)
		return
	}

	c.mu.Lock()
	c.clientset = clientset
	c.initialized = true
	c.mu.Unlock()
}

// IsInitialized reports whether a Kubernetes API connection exists.
func (c *K8sClient) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// IsInCluster reports whether the agent runs inside a cluster.
func (c *K8sClient) IsInCluster() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inCluster
}

// GetSecret fetches a Secret, used to resolve TLS material referenced by
// the inventory tls configuration.
func (c *K8sClient) GetSecret(namespace, name string) (*corev1.Secret, error) {
	c.mu.RLock()
	clientset := c.clientset
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
}
