package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/metadata"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/store"
	"github.com/mohitkumar/loanwizard/util"
	"go.uber.org/zap"
)

// sendTask is a message waiting for its turn on the send queue.
type sendTask struct {
	Content     string
	Attachments []model.Attachment
	Upload      bool
}

type Server struct {
	http.Server
	Port            int
	metadataService metadata.MetadataService
	actions         *store.Actions
	sendWorker      *util.Worker[sendTask]
}

func NewServer(httpPort int, metadataService metadata.MetadataService, actions *store.Actions, metricsHandler http.Handler, wg *sync.WaitGroup, queueCapacity int) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		metadataService: metadataService,
		actions:         actions,
		Port:            httpPort,
	}
	s.sendWorker = util.NewWorker("send-message", wg, s.handleSendTask, queueCapacity)

	router := mux.NewRouter()
	router.HandleFunc("/wizards", s.HandleListWizards).Methods(http.MethodGet)
	router.HandleFunc("/wizards", s.HandleCreateWizard).Methods(http.MethodPost)
	router.HandleFunc("/wizards/{type}", s.HandleGetWizard).Methods(http.MethodGet)
	router.HandleFunc("/wizards/{type}", s.HandleDeleteWizard).Methods(http.MethodDelete)

	router.HandleFunc("/state", s.HandleGetState).Methods(http.MethodGet)

	router.HandleFunc("/sessions", s.HandleListSessions).Methods(http.MethodGet)
	router.HandleFunc("/sessions", s.HandleStartSession).Methods(http.MethodPost)
	router.HandleFunc("/sessions/current/clear", s.HandleClearSession).Methods(http.MethodPost)
	router.HandleFunc("/sessions/current/stats", s.HandleSessionStats).Methods(http.MethodGet)
	router.HandleFunc("/sessions/current/export", s.HandleExportConversation).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{id}/select", s.HandleSelectSession).Methods(http.MethodPost)
	router.HandleFunc("/sessions/{id}", s.HandleDeleteSession).Methods(http.MethodDelete)

	router.HandleFunc("/messages", s.HandleSendMessage).Methods(http.MethodPost)
	router.HandleFunc("/documents", s.HandleUploadDocuments).Methods(http.MethodPost)

	router.HandleFunc("/wizard", s.HandleStartWizard).Methods(http.MethodPost)
	router.HandleFunc("/wizard", s.HandleExitWizard).Methods(http.MethodDelete)
	router.HandleFunc("/wizard/steps/{step}/complete", s.HandleCompleteStep).Methods(http.MethodPost)
	router.HandleFunc("/wizard/steps/{step}/goto", s.HandleGoToStep).Methods(http.MethodPost)
	router.HandleFunc("/wizard/steps/{step}/data", s.HandleUpdateStepData).Methods(http.MethodPatch)

	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	s.sendWorker.Start()
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StartWorkers starts the send queue without listening, for callers that
// serve Handler themselves.
func (s *Server) StartWorkers() {
	s.sendWorker.Start()
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	s.sendWorker.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func (s *Server) handleSendTask(ctx context.Context, task sendTask) error {
	if task.Upload {
		return s.actions.UploadDocuments(ctx, task.Attachments, task.Content)
	}
	return s.actions.SendMessage(ctx, task.Content, task.Attachments)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug(r.RequestURI, zap.String("method", r.Method))
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
