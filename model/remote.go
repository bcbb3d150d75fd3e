package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type RunStatus string

const RUN_PENDING RunStatus = "pending"
const RUN_RUNNING RunStatus = "running"
const RUN_SUCCESS RunStatus = "success"
const RUN_ERROR RunStatus = "error"

func (s RunStatus) IsTerminal() bool {
	return s == RUN_SUCCESS || s == RUN_ERROR
}

type ThreadMetadata struct {
	UserId         string     `json:"user_id,omitempty"`
	SessionName    string     `json:"session_name,omitempty"`
	SessionContext string     `json:"session_context,omitempty"`
	WizardType     WizardType `json:"wizard_type,omitempty"`
}

type Thread struct {
	ThreadId  string         `json:"thread_id"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  ThreadMetadata `json:"metadata"`
}

// MessageContent decodes either a plain string or a list of
// {"type": "text", "text": ...} parts.
type MessageContent string

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = MessageContent(s)
		return nil
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("message content must be a string or a list of parts: %w", err)
	}
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Type == "" || p.Type == "text" {
			texts = append(texts, p.Text)
		}
	}
	*c = MessageContent(strings.Join(texts, ""))
	return nil
}

type RemoteMessage struct {
	Id        string         `json:"id,omitempty"`
	Role      string         `json:"role,omitempty"`
	Type      string         `json:"type,omitempty"`
	Content   MessageContent `json:"content"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// MessageRole resolves the role from either the role field or the
// message type used by graph runtimes (human, ai, system, tool).
func (m RemoteMessage) MessageRole() MessageRole {
	r := m.Role
	if r == "" {
		r = m.Type
	}
	switch strings.ToLower(r) {
	case "user", "human":
		return ROLE_USER
	case "system":
		return ROLE_SYSTEM
	}
	return ROLE_ASSISTANT
}

func ToRemoteMessage(msg Message) RemoteMessage {
	rm := RemoteMessage{
		Role:    string(msg.Role),
		Content: MessageContent(msg.Content),
	}
	if !msg.Timestamp.IsZero() {
		rm.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	return rm
}

type ThreadStateValues struct {
	Messages             []RemoteMessage `json:"messages"`
	CollectedData        map[string]any  `json:"collected_data"`
	CompletionPercentage float64         `json:"completion_percentage"`
	ApplicationComplete  bool            `json:"application_complete"`
	CurrentStep          string          `json:"current_step"`
	CurrentPhase         string          `json:"current_phase"`
}

type ThreadState struct {
	Values ThreadStateValues `json:"values"`
}

func (s *ThreadState) Validate() error {
	p := s.Values.CompletionPercentage
	if p < 0 || p > 100 {
		return fmt.Errorf("completion_percentage %v out of range", p)
	}
	return nil
}

// LastMessage returns the content of the last message, or "" when there
// are none.
func (s *ThreadState) LastMessage() string {
	msgs := s.Values.Messages
	if len(msgs) == 0 {
		return ""
	}
	return string(msgs[len(msgs)-1].Content)
}

type RunInput struct {
	Messages []RemoteMessage `json:"messages"`
}

type RunRequest struct {
	AssistantId string   `json:"assistant_id"`
	Input       RunInput `json:"input"`
	Stream      bool     `json:"stream"`
}

type Run struct {
	RunId    string          `json:"run_id"`
	ThreadId string          `json:"thread_id,omitempty"`
	Status   RunStatus       `json:"status"`
	Output   json.RawMessage `json:"output,omitempty"`
}

// ErrorDetail returns output.error when the output is an object carrying
// one, the output itself when it is a string, and "" otherwise.
func (r *Run) ErrorDetail() string {
	if len(r.Output) == 0 {
		return ""
	}
	var out struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(r.Output, &out); err == nil && out.Error != nil {
		if s, ok := out.Error.(string); ok {
			return s
		}
		b, _ := json.Marshal(out.Error)
		return string(b)
	}
	var s string
	if err := json.Unmarshal(r.Output, &s); err == nil {
		return s
	}
	return ""
}

// RemoteRun tracks one submitted run while the sync loop waits on it.
type RemoteRun struct {
	RunId     string
	ThreadId  string
	Status    RunStatus
	StartedAt time.Time
}

func NewRemoteRun(run *Run, threadId string, startedAt time.Time) *RemoteRun {
	status := run.Status
	if status == "" {
		status = RUN_PENDING
	}
	return &RemoteRun{
		RunId:     run.RunId,
		ThreadId:  threadId,
		Status:    status,
		StartedAt: startedAt,
	}
}

type ThreadSearchRequest struct {
	Metadata ThreadMetadata `json:"metadata"`
	Limit    int            `json:"limit,omitempty"`
}

type ThreadCreateRequest struct {
	Metadata ThreadMetadata `json:"metadata"`
}

type ThreadStateUpdate struct {
	Values map[string]any `json:"values"`
}
