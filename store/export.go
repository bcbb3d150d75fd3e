package store

import (
	"time"

	"github.com/mohitkumar/loanwizard/model"
)

type SessionStats struct {
	SessionId              string                 `json:"session_id"`
	TotalMessages          int                    `json:"total_messages"`
	UserMessages           int                    `json:"user_messages"`
	AssistantMessages      int                    `json:"assistant_messages"`
	SystemMessages         int                    `json:"system_messages"`
	TotalAttachments       int                    `json:"total_attachments"`
	SessionDurationMinutes float64                `json:"session_duration_minutes"`
	LastActivity           time.Time              `json:"last_activity"`
	HasWizard              bool                   `json:"has_wizard"`
	CompletionPercentage   int                    `json:"completion_percentage"`
	Phase                  model.ApplicationPhase `json:"phase"`
}

type ExportedSession struct {
	SessionId   string           `json:"session_id"`
	SessionName string           `json:"session_name"`
	Context     string           `json:"context,omitempty"`
	WizardType  model.WizardType `json:"wizard_type,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	ExportedAt  time.Time        `json:"exported_at"`
}

type ExportedApplication struct {
	Phase                model.ApplicationPhase    `json:"phase"`
	ApplicationComplete  bool                      `json:"application_complete"`
	CompletionPercentage int                       `json:"completion_percentage"`
	CurrentStep          string                    `json:"current_step,omitempty"`
	CollectedData        map[string]map[string]any `json:"collected_data,omitempty"`
}

// ConversationExport is a self contained copy of the current session for
// download or backup.
type ConversationExport struct {
	SessionInfo  ExportedSession     `json:"session_info"`
	Conversation []model.Message     `json:"conversation"`
	Application  ExportedApplication `json:"application"`
}

// Stats computes SessionStats for state's current session at now.
func Stats(state State, now time.Time) (*SessionStats, error) {
	cur := state.CurrentSession
	if cur == nil {
		return nil, ErrNoSession
	}
	stats := &SessionStats{
		SessionId:    cur.Id,
		LastActivity: cur.CreatedAt,
		Phase:        state.Phase,
	}
	for _, m := range state.Messages {
		stats.TotalMessages++
		switch m.Role {
		case model.ROLE_USER:
			stats.UserMessages++
		case model.ROLE_SYSTEM:
			stats.SystemMessages++
		default:
			stats.AssistantMessages++
		}
		stats.TotalAttachments += len(m.Attachments)
		if m.Timestamp.After(stats.LastActivity) {
			stats.LastActivity = m.Timestamp
		}
	}
	if !cur.CreatedAt.IsZero() && now.After(cur.CreatedAt) {
		stats.SessionDurationMinutes = now.Sub(cur.CreatedAt).Minutes()
	}
	if state.Wizard != nil {
		stats.HasWizard = true
		stats.CompletionPercentage = state.Wizard.CompletionPercentage
	}
	return stats, nil
}

// Export copies state's current session into a ConversationExport.
func Export(state State, now time.Time) (*ConversationExport, error) {
	state = state.Copy()
	cur := state.CurrentSession
	if cur == nil {
		return nil, ErrNoSession
	}
	msgs := state.Messages
	if msgs == nil {
		msgs = []model.Message{}
	}
	export := &ConversationExport{
		SessionInfo: ExportedSession{
			SessionId:   cur.Id,
			SessionName: cur.Name,
			Context:     cur.Context,
			WizardType:  cur.WizardType,
			CreatedAt:   cur.CreatedAt,
			ExportedAt:  now,
		},
		Conversation: msgs,
		Application: ExportedApplication{
			Phase:               state.Phase,
			ApplicationComplete: state.ApplicationComplete,
		},
	}
	if w := state.Wizard; w != nil {
		export.Application.CompletionPercentage = w.CompletionPercentage
		export.Application.CurrentStep = w.CurrentStepId
		export.Application.CollectedData = w.CollectedData
	}
	return export, nil
}
