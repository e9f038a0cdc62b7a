package main

// TargetView - a scrape target inventory viewer
//
// The agent periodically fetches the scrape target inventory of a
// Prometheus-compatible endpoint, aggregates it into per-pool summaries
// and serves a searchable view of it over a local HTTP API.

import (
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"

	"github.com/whatap/golib/logger/logfile"
	"github.com/whatap/golib/util/dateutil"

	"targetview/pkg/config"
	"targetview/view"
)

var (
	version    string // Version of the application
	commitHash string // Git commit hash
)

// startPprofServer starts the pprof HTTP server for performance profiling
func startPprofServer(logger *logfile.FileLogger) {
	pprofPortStr := os.Getenv("PPROF_PORT")
	if pprofPortStr == "" {
		pprofPortStr = "6060"
	}

	pprofPort, err := strconv.Atoi(pprofPortStr)
	if err != nil {
		logger.Infoln("pprof", "Invalid PPROF_PORT value, using default 6060")
		pprofPort = 6060
	}

	pprofAddr := fmt.Sprintf(":%d", pprofPort)

	go func() {
		logger.Infoln("pprof", fmt.Sprintf("Starting pprof server on %s", pprofAddr))
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			logger.Infoln("pprof", fmt.Sprintf("Failed to start pprof server: %v", err))
		}
	}()
}

func run(home string, logger *logfile.FileLogger) {
	// Set up signal handling for graceful shutdown
	stopper := make(chan os.Signal, 1)
	signal.Notify(stopper, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	startPprofServer(logger)

	// Set up signal handling for crash dumps
	dump := make(chan os.Signal, 1)
	signal.Notify(dump, syscall.SIGSEGV, syscall.SIGABRT)
	go func() {
		<-dump

		stackFile := fmt.Sprintf("%s/logs/stack-%s.dump", home, dateutil.YYYYMMDD(dateutil.Now()))
		f, err := os.Create(stackFile)
		if err != nil {
			log.Fatal(err)
		}
		defer func(f *os.File) {
			err := f.Close()
			if err != nil {
				logger.Infoln("run", "Error closing stack dump file", err)
			}
		}(f)

		err = pprof.Lookup("goroutine").WriteTo(f, 1)
		if err != nil {
			logger.Infoln("run", "Error writing stack dump file", err)
			return
		}

		os.Exit(1)
	}()

	view.BootTargetView(version, commitHash, logger)

	<-stopper
	logger.Infoln("run", "Received termination signal, shutting down")
	view.Shutdown()
}

func main() {
	if config.IsDebugEnabled() {
		fmt.Println("debug mode: enabled")
	}

	if len(os.Args) > 1 && os.Args[1] == "standalone" {
		// Skip in-cluster detection and use the local kubeconfig only.
		config.SetForceStandaloneMode(true)
	}

	home := config.Home()
	logger := logfile.NewFileLogger(logfile.WithOnameLogID("targetview", "TARGETVIEW"), logfile.WithHomePath(home))
	run(home, logger)
}
