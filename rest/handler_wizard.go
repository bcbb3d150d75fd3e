package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/model"
	"go.uber.org/zap"
)

func (s *Server) HandleListWizards(w http.ResponseWriter, r *http.Request) {
	defs, err := s.metadataService.ListWizardDefinitions()
	if err != nil {
		logger.Error("error listing wizards", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error listing wizards")
		return
	}
	respondWithJSON(w, http.StatusOK, defs)
}

func (s *Server) HandleGetWizard(w http.ResponseWriter, r *http.Request) {
	wizardType := model.WizardType(mux.Vars(r)["type"])
	def, err := s.metadataService.GetWizardDefinition(wizardType)
	if err != nil {
		var invalid api.InvalidWizardTypeError
		if errors.As(err, &invalid) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		logger.Error("error getting wizard", zap.String("wizard", string(wizardType)), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error getting wizard")
		return
	}
	respondWithJSON(w, http.StatusOK, def)
}

func (s *Server) HandleCreateWizard(w http.ResponseWriter, r *http.Request) {
	var def model.WizardDefinition
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.metadataService.ValidateDefinition(def); err != nil {
		logger.Error("error validating wizard", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	storage := s.metadataService.GetDefinitionStorage()
	if storage == nil {
		respondWithError(w, http.StatusNotImplemented, "wizard storage not configured")
		return
	}
	if err := storage.SaveWizardDefinition(def); err != nil {
		logger.Error("error creating wizard", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error creating wizard")
		return
	}
	respondOK(w, map[string]any{"created": true})
}

func (s *Server) HandleDeleteWizard(w http.ResponseWriter, r *http.Request) {
	wizardType := model.WizardType(mux.Vars(r)["type"])
	storage := s.metadataService.GetDefinitionStorage()
	if storage == nil {
		respondWithError(w, http.StatusNotImplemented, "wizard storage not configured")
		return
	}
	if err := storage.DeleteWizardDefinition(wizardType); err != nil {
		logger.Error("error deleting wizard", zap.String("wizard", string(wizardType)), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error deleting wizard")
		return
	}
	respondOK(w, map[string]any{"deleted": true})
}

type startWizardRequest struct {
	WizardType model.WizardType `json:"wizardType"`
}

func (s *Server) HandleStartWizard(w http.ResponseWriter, r *http.Request) {
	var req startWizardRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.actions.StartWizard(r.Context(), req.WizardType); err != nil {
		respondWithError(w, statusOf(err), api.DisplayError(err))
		return
	}
	respondWithJSON(w, http.StatusOK, s.actions.Store().GetState())
}

func (s *Server) HandleExitWizard(w http.ResponseWriter, r *http.Request) {
	s.actions.ExitWizard()
	respondWithJSON(w, http.StatusOK, s.actions.Store().GetState())
}

func (s *Server) HandleCompleteStep(w http.ResponseWriter, r *http.Request) {
	stepId := mux.Vars(r)["step"]
	if err := s.actions.CompleteStep(r.Context(), stepId); err != nil {
		respondWithError(w, statusOf(err), api.DisplayError(err))
		return
	}
	respondWithJSON(w, http.StatusOK, s.actions.Store().GetState().Wizard)
}

func (s *Server) HandleGoToStep(w http.ResponseWriter, r *http.Request) {
	stepId := mux.Vars(r)["step"]
	if err := s.actions.GoToStep(stepId); err != nil {
		respondWithError(w, statusOf(err), api.DisplayError(err))
		return
	}
	respondWithJSON(w, http.StatusOK, s.actions.Store().GetState().Wizard)
}

func (s *Server) HandleUpdateStepData(w http.ResponseWriter, r *http.Request) {
	stepId := mux.Vars(r)["step"]
	var data map[string]any
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.actions.UpdateStepData(stepId, data); err != nil {
		respondWithError(w, statusOf(err), api.DisplayError(err))
		return
	}
	respondWithJSON(w, http.StatusOK, s.actions.Store().GetState().Wizard)
}

func statusOf(err error) int {
	var (
		invalid    api.InvalidWizardTypeError
		stale      api.StaleStepReferenceError
		inProgress api.RunInProgressError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &stale):
		return http.StatusConflict
	case errors.As(err, &inProgress):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}
