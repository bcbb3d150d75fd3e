package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/store"
	"go.uber.org/zap"
)

func (s *Server) HandleGetState(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.actions.Store().GetState())
}

func (s *Server) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	if err := s.actions.LoadSessions(r.Context()); err != nil {
		respondWithError(w, statusOf(err), api.DisplayError(err))
		return
	}
	respondWithJSON(w, http.StatusOK, s.actions.Store().GetState().Sessions)
}

type startSessionRequest struct {
	Name       string           `json:"name"`
	Context    string           `json:"context"`
	WizardType model.WizardType `json:"wizardType"`
}

func (s *Server) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.actions.StartSession(r.Context(), req.Name, req.Context, req.WizardType)
	if err != nil {
		respondWithError(w, statusOf(err), api.DisplayError(err))
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

func (s *Server) HandleSelectSession(w http.ResponseWriter, r *http.Request) {
	if err := s.actions.SelectSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithError(w, statusOf(err), api.DisplayError(err))
		return
	}
	respondWithJSON(w, http.StatusOK, s.actions.Store().GetState())
}

func (s *Server) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.actions.DeleteSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithError(w, statusOf(err), api.DisplayError(err))
		return
	}
	respondOK(w, map[string]any{"deleted": true})
}

func (s *Server) HandleClearSession(w http.ResponseWriter, r *http.Request) {
	err := s.actions.ClearSession(r.Context())
	if errors.Is(err, store.ErrNoSession) {
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondWithError(w, statusOf(err), api.DisplayError(err))
		return
	}
	respondOK(w, map[string]any{"cleared": true})
}

func (s *Server) HandleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.actions.SessionStats()
	if err != nil {
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (s *Server) HandleExportConversation(w http.ResponseWriter, r *http.Request) {
	export, err := s.actions.ExportConversation()
	if err != nil {
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "conversation-"+export.SessionInfo.SessionId+".json"))
	respondWithJSON(w, http.StatusOK, export)
}

type sendMessageRequest struct {
	Content     string             `json:"content"`
	Attachments []model.Attachment `json:"attachments"`
}

// HandleSendMessage queues the message and answers before the run
// settles; progress is read back through /state.
func (s *Server) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Content == "" && len(req.Attachments) == 0 {
		respondWithError(w, http.StatusBadRequest, "message is empty")
		return
	}
	s.enqueue(w, sendTask{Content: req.Content, Attachments: req.Attachments})
}

type uploadDocumentsRequest struct {
	Files []model.Attachment `json:"files"`
	Note  string             `json:"note"`
}

func (s *Server) HandleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	var req uploadDocumentsRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Files) == 0 {
		respondWithError(w, http.StatusBadRequest, "no documents to upload")
		return
	}
	s.enqueue(w, sendTask{Content: req.Note, Attachments: req.Files, Upload: true})
}

func (s *Server) enqueue(w http.ResponseWriter, task sendTask) {
	if s.actions.Store().GetState().CurrentSession == nil {
		respondWithError(w, http.StatusConflict, store.ErrNoSession.Error())
		return
	}
	if !s.sendWorker.Submit(task) {
		logger.Warn("send queue full", zap.Int("pending", s.sendWorker.Pending()))
		respondWithError(w, http.StatusServiceUnavailable, "too many pending messages")
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]any{"queued": true, "pending": s.sendWorker.Pending()})
}
