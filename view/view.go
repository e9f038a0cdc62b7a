package view

import (
	"fmt"
	"time"

	"github.com/whatap/golib/logger/logfile"

	"targetview/pkg/config"
	"targetview/pkg/controller"
	"targetview/pkg/fetch"
	"targetview/pkg/k8s"
	"targetview/pkg/web"
)

var isRun = false

// Global logger for the application
var appLogger *logfile.FileLogger

// Channels for shutdown coordination
var shutdownCh = make(chan struct{})
var doneCh = make(chan struct{}, 2) // Buffer for 2 components: fetcher, web server

// SetAppLogger sets the application logger
func SetAppLogger(logger *logfile.FileLogger) {
	appLogger = logger
}

// GetAppLogger returns the application logger
func GetAppLogger() *logfile.FileLogger {
	return appLogger
}

// BootTargetView initializes and starts the target inventory agent: the
// config manager, the filter controller with its persisted query, the
// inventory fetch loop and the local targets API.
func BootTargetView(version, commitHash string, logger *logfile.FileLogger) {
	SetAppLogger(logger)

	GetAppLogger().Println("BootTargetView", fmt.Sprintf("Starting TargetView version=%s, commitHash=%s", version, commitHash))

	conf := config.GetInstance()

	if conf.GetInventoryURL() == "" {
		GetAppLogger().Println("BootTargetView", "Config Error - inventory.url is not set, nothing to monitor")
		return
	}

	// Touch the Kubernetes client early so in-cluster detection happens
	// before the first fetch.
	if config.IsForceStandaloneMode() {
		k8s.SetStandaloneMode(true)
	}
	k8s.GetInstance()

	store := controller.NewFileQueryStore(config.Home())
	ctrl := controller.NewFilterController(store, conf.GetJobLabel())
	if q := ctrl.Query(); q != "" {
		GetAppLogger().Println("BootTargetView", fmt.Sprintf("Restored persisted search query %q", q))
	}

	fetcher, err := fetch.NewFetcher(conf, ctrl)
	if err != nil {
		GetAppLogger().Println("BootTargetView", fmt.Sprintf("Config Error - %v", err))
		return
	}

	// Start the inventory fetch loop with error recovery and shutdown
	// handling.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Println("FetcherPanic", fmt.Sprintf("Recovered from panic: %v", r))
				select {
				case <-shutdownCh:
					doneCh <- struct{}{}
					return
				case <-time.After(5 * time.Second):
					go fetcher.Start()
				}
			} else {
				doneCh <- struct{}{}
			}
		}()

		fetchDone := make(chan struct{})
		go func() {
			fetcher.Start()
			close(fetchDone)
		}()

		select {
		case <-fetchDone:
		case <-shutdownCh:
			logger.Println("Fetcher", "Shutdown requested")
			fetcher.Stop()
		}
	}()

	// Start the targets API with error recovery and shutdown handling.
	server := web.NewServer(conf.GetListenAddress(), ctrl, version)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Println("WebServerPanic", fmt.Sprintf("Recovered from panic: %v", r))
			}
			doneCh <- struct{}{}
		}()

		serveDone := make(chan struct{})
		go func() {
			if err := server.Start(); err != nil {
				logger.Println("WebServer", fmt.Sprintf("Server error: %v", err))
			}
			close(serveDone)
		}()

		select {
		case <-serveDone:
		case <-shutdownCh:
			logger.Println("WebServer", "Shutdown requested")
			if err := server.Shutdown(); err != nil {
				logger.Println("WebServer", fmt.Sprintf("Shutdown error: %v", err))
			}
		}
	}()

	isRun = true
}

// IsRun reports whether the agent components were started.
func IsRun() bool {
	return isRun
}

// Shutdown signals all components to stop and waits for them to finish.
func Shutdown() {
	if !isRun {
		return
	}
	close(shutdownCh)

	timeout := time.After(10 * time.Second)
	for i := 0; i < cap(doneCh); i++ {
		select {
		case <-doneCh:
		case <-timeout:
			GetAppLogger().Println("Shutdown", "Timed out waiting for components to stop")
			return
		}
	}
	GetAppLogger().Println("Shutdown", "All components stopped")
}
