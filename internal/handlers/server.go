package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tagarr/internal/core"
	"tagarr/internal/database/models"
	"tagarr/internal/utils"

	"github.com/gorilla/mux"
)

type Server struct {
	port       int
	logger     *utils.Logger
	httpServer *http.Server
	apiHandler *APIHandler
	hub        *EventHub
}

// NewServer wires the status API. runs may be nil when history is disabled.
func NewServer(port int, manager *core.Manager, runs *models.RunRepository, logger *utils.Logger) *Server {
	hub := NewEventHub(logger)
	manager.AddObserver(hub)
	s := &Server{
		port:       port,
		logger:     logger,
		apiHandler: NewAPIHandler(manager, runs, logger),
		hub:        hub,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/status", s.apiHandler.GetStatus).Methods("GET")
	api.HandleFunc("/runs", s.apiHandler.GetRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.apiHandler.GetRun).Methods("GET")
	api.HandleFunc("/run", s.apiHandler.TriggerRun).Methods("POST")
	api.HandleFunc("/events", s.hub.ServeWS).Methods("GET")

	return router
}

func (s *Server) Start() error {
	s.logger.Info("Starting status server on port", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}
