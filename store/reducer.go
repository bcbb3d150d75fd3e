package store

import (
	"github.com/mohitkumar/loanwizard/flow"
	"github.com/mohitkumar/loanwizard/model"
)

// Reduce returns the state after applying a. It never modifies state and
// never fails: wizard actions naming an unknown step leave state as is.
func Reduce(state State, a Action) State {
	next := state
	switch a.Type {
	case SET_LOADING:
		next.Loading = a.Flag
	case SET_ERROR:
		next.Error = a.Error
	case CLEAR_ERROR:
		next.Error = ""
	case SET_CONNECTED:
		next.Connected = a.Flag
	case SET_SESSIONS:
		next.Sessions = append([]model.SessionSummary(nil), a.Sessions...)
	case SET_CURRENT_SESSION:
		if a.Session == nil {
			next.CurrentSession = nil
		} else {
			cur := *a.Session
			next.CurrentSession = &cur
		}
	case ADD_MESSAGE:
		msgs := make([]model.Message, len(state.Messages), len(state.Messages)+1)
		copy(msgs, state.Messages)
		next.Messages = append(msgs, a.Message)
	case SET_MESSAGES:
		next.Messages = append([]model.Message(nil), a.Messages...)
	case CLEAR_MESSAGES:
		next.Messages = nil
	case START_WIZARD:
		if a.Definition == nil {
			return state
		}
		next.Wizard = flow.Start(a.Definition)
		next.ApplicationComplete = false
		next.Phase = flow.Phase(next.Wizard, false)
	case UPDATE_WIZARD_STEP:
		return applyWizard(state, func(w *model.WizardState) (*model.WizardState, error) {
			return flow.UpdateStepData(w, a.StepId, a.Data)
		})
	case COMPLETE_WIZARD_STEP:
		return applyWizard(state, func(w *model.WizardState) (*model.WizardState, error) {
			return flow.CompleteStep(w, a.StepId)
		})
	case GO_TO_WIZARD_STEP:
		return applyWizard(state, func(w *model.WizardState) (*model.WizardState, error) {
			return flow.GoToStep(w, a.StepId)
		})
	case SYNC_WIZARD:
		next.ApplicationComplete = state.ApplicationComplete || a.Snapshot.ApplicationComplete
		next.Wizard = flow.Reconcile(state.Wizard, a.Snapshot)
		next.Phase = flow.Phase(next.Wizard, next.ApplicationComplete)
	case CLEAR_WIZARD:
		next.Wizard = flow.Clear()
		next.ApplicationComplete = false
		next.Phase = model.PHASE_DISCOVERY
	case DELETE_SESSION:
		sessions := make([]model.SessionSummary, 0, len(state.Sessions))
		for _, s := range state.Sessions {
			if s.Id != a.SessionId {
				sessions = append(sessions, s)
			}
		}
		next.Sessions = sessions
		if state.CurrentSession != nil && state.CurrentSession.Id == a.SessionId {
			next.CurrentSession = nil
			next.Messages = nil
			next.Wizard = nil
			next.ApplicationComplete = false
			next.Phase = model.PHASE_DISCOVERY
		}
	default:
		return state
	}
	return next
}

func applyWizard(state State, transition func(*model.WizardState) (*model.WizardState, error)) State {
	w, err := transition(state.Wizard)
	if err != nil {
		return state
	}
	next := state
	next.Wizard = w
	next.Phase = flow.Phase(w, state.ApplicationComplete)
	return next
}

// Replay folds actions over the initial state.
func Replay(actions ...Action) State {
	state := InitialState()
	for _, a := range actions {
		state = Reduce(state, a)
	}
	return state
}
