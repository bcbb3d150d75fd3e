package store

import "github.com/mohitkumar/loanwizard/model"

// State is everything the application keeps about the user's sessions.
// It is replaced, never modified, on every dispatch.
type State struct {
	Sessions            []model.SessionSummary `json:"sessions"`
	CurrentSession      *model.SessionSummary  `json:"currentSession"`
	Messages            []model.Message        `json:"messages"`
	Connected           bool                   `json:"connected"`
	Loading             bool                   `json:"loading"`
	Error               string                 `json:"error,omitempty"`
	Wizard              *model.WizardState     `json:"wizard"`
	Phase               model.ApplicationPhase `json:"phase"`
	ApplicationComplete bool                   `json:"applicationComplete"`
}

func InitialState() State {
	return State{Phase: model.PHASE_DISCOVERY}
}

// Copy returns a State sharing no slices, maps or pointers with s.
func (s State) Copy() State {
	c := s
	if s.Sessions != nil {
		c.Sessions = make([]model.SessionSummary, len(s.Sessions))
		copy(c.Sessions, s.Sessions)
	}
	if s.CurrentSession != nil {
		cur := *s.CurrentSession
		c.CurrentSession = &cur
	}
	if s.Messages != nil {
		c.Messages = make([]model.Message, len(s.Messages))
		copy(c.Messages, s.Messages)
		for i := range c.Messages {
			if atts := c.Messages[i].Attachments; atts != nil {
				c.Messages[i].Attachments = append([]model.Attachment(nil), atts...)
			}
		}
	}
	c.Wizard = s.Wizard.Copy()
	return c
}
