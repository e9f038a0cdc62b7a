// Package web serves the derived target view over a local HTTP API. It
// renders what the controller publishes and feeds search queries back;
// nothing else flows from the render boundary into the core.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"targetview/pkg/controller"
	"targetview/tools/util/logutil"
)

// Server hosts the targets API.
type Server struct {
	controller *controller.FilterController
	version    string
	httpServer *http.Server
}

// NewServer creates the API server around a filter controller.
func NewServer(addr string, ctrl *controller.FilterController, version string) *Server {
	s := &Server{
		controller: ctrl,
		version:    version,
	}

	router := mux.NewRouter()
	s.RegisterRoutes("/api/v1", router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// RegisterRoutes attaches all API routes under the given prefix.
func (s *Server) RegisterRoutes(prefix string, router *mux.Router) {
	router.HandleFunc(prefix+"/targets", s.getTargetsHandler).Methods(http.MethodGet)
	router.HandleFunc(prefix+"/targets/summary", s.getSummaryHandler).Methods(http.MethodGet)
	router.HandleFunc(prefix+"/pools/{pool}/targets", s.getPoolTargetsHandler).Methods(http.MethodGet)
	router.HandleFunc(prefix+"/status", s.getStatusHandler).Methods(http.MethodGet)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logutil.Infof("WEB", "Targets API listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
