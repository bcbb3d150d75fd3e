package store

import (
	"github.com/mohitkumar/loanwizard/flow"
	"github.com/mohitkumar/loanwizard/model"
)

type ActionType string

const SET_LOADING ActionType = "SET_LOADING"
const SET_ERROR ActionType = "SET_ERROR"
const CLEAR_ERROR ActionType = "CLEAR_ERROR"
const SET_CONNECTED ActionType = "SET_CONNECTED"
const SET_SESSIONS ActionType = "SET_SESSIONS"
const SET_CURRENT_SESSION ActionType = "SET_CURRENT_SESSION"
const ADD_MESSAGE ActionType = "ADD_MESSAGE"
const SET_MESSAGES ActionType = "SET_MESSAGES"
const CLEAR_MESSAGES ActionType = "CLEAR_MESSAGES"
const START_WIZARD ActionType = "START_WIZARD"
const UPDATE_WIZARD_STEP ActionType = "UPDATE_WIZARD_STEP"
const COMPLETE_WIZARD_STEP ActionType = "COMPLETE_WIZARD_STEP"
const GO_TO_WIZARD_STEP ActionType = "GO_TO_WIZARD_STEP"
const SYNC_WIZARD ActionType = "SYNC_WIZARD"
const CLEAR_WIZARD ActionType = "CLEAR_WIZARD"
const DELETE_SESSION ActionType = "DELETE_SESSION"

// Action is a tagged union; only the fields its Type reads are set.
type Action struct {
	Type       ActionType
	Flag       bool
	Error      string
	Sessions   []model.SessionSummary
	Session    *model.SessionSummary
	Message    model.Message
	Messages   []model.Message
	Definition *model.WizardDefinition
	StepId     string
	Data       map[string]any
	Snapshot   flow.RemoteSnapshot
	SessionId  string
}

func SetLoading(loading bool) Action {
	return Action{Type: SET_LOADING, Flag: loading}
}

func SetError(msg string) Action {
	return Action{Type: SET_ERROR, Error: msg}
}

func ClearError() Action {
	return Action{Type: CLEAR_ERROR}
}

func SetConnected(connected bool) Action {
	return Action{Type: SET_CONNECTED, Flag: connected}
}

func SetSessions(sessions []model.SessionSummary) Action {
	return Action{Type: SET_SESSIONS, Sessions: sessions}
}

func SetCurrentSession(session *model.SessionSummary) Action {
	return Action{Type: SET_CURRENT_SESSION, Session: session}
}

func AddMessage(msg model.Message) Action {
	return Action{Type: ADD_MESSAGE, Message: msg}
}

func SetMessages(msgs []model.Message) Action {
	return Action{Type: SET_MESSAGES, Messages: msgs}
}

func ClearMessages() Action {
	return Action{Type: CLEAR_MESSAGES}
}

func StartWizard(def *model.WizardDefinition) Action {
	return Action{Type: START_WIZARD, Definition: def}
}

func UpdateWizardStep(stepId string, data map[string]any) Action {
	return Action{Type: UPDATE_WIZARD_STEP, StepId: stepId, Data: data}
}

func CompleteWizardStep(stepId string) Action {
	return Action{Type: COMPLETE_WIZARD_STEP, StepId: stepId}
}

func GoToWizardStep(stepId string) Action {
	return Action{Type: GO_TO_WIZARD_STEP, StepId: stepId}
}

func SyncWizard(snap flow.RemoteSnapshot) Action {
	return Action{Type: SYNC_WIZARD, Snapshot: snap}
}

func ClearWizard() Action {
	return Action{Type: CLEAR_WIZARD}
}

func DeleteSession(sessionId string) Action {
	return Action{Type: DELETE_SESSION, SessionId: sessionId}
}
