package model

import "time"

type MessageRole string

const ROLE_USER MessageRole = "user"
const ROLE_ASSISTANT MessageRole = "assistant"
const ROLE_SYSTEM MessageRole = "system"

type Attachment struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

type Message struct {
	Id          string       `json:"id"`
	Role        MessageRole  `json:"role"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// SessionSummary mirrors one remote thread. Id is the thread id.
type SessionSummary struct {
	Id         string     `json:"id"`
	Name       string     `json:"name"`
	UserId     string     `json:"userId,omitempty"`
	Context    string     `json:"context,omitempty"`
	WizardType WizardType `json:"wizardType,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func SessionFromThread(t Thread) SessionSummary {
	return SessionSummary{
		Id:         t.ThreadId,
		Name:       t.Metadata.SessionName,
		UserId:     t.Metadata.UserId,
		Context:    t.Metadata.SessionContext,
		WizardType: t.Metadata.WizardType,
		CreatedAt:  t.CreatedAt,
	}
}

type ApplicationPhase string

const PHASE_DISCOVERY ApplicationPhase = "discovery"
const PHASE_INITIATED ApplicationPhase = "initiated"
const PHASE_IN_PROGRESS ApplicationPhase = "in_progress"
const PHASE_READY_FOR_REVIEW ApplicationPhase = "ready_for_review"
const PHASE_SUBMITTED ApplicationPhase = "submitted"
