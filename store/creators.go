package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/loanwizard/analytics"
	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/flow"
	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/metrics"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/runner"
	"go.uber.org/zap"
)

var ErrNoSession = errors.New("no session selected")

type SessionAPI interface {
	CreateThread(ctx context.Context, meta model.ThreadMetadata) (*model.Thread, error)
	GetThread(ctx context.Context, threadId string) (*model.Thread, error)
	SearchThreads(ctx context.Context, meta model.ThreadMetadata, limit int) ([]model.Thread, error)
	GetThreadState(ctx context.Context, threadId string) (*model.ThreadState, error)
	UpdateThreadState(ctx context.Context, threadId string, values map[string]any) error
}

type Sender interface {
	Send(ctx context.Context, threadId string, msg model.Message) (*runner.SyncResult, error)
}

type Registry interface {
	GetWizardDefinition(wizardType model.WizardType) (*model.WizardDefinition, error)
}

type ActionsConfig struct {
	UserId string
	// HistoryLimit caps the number of messages kept in State; 0 keeps all.
	HistoryLimit       int
	SessionSearchLimit int
}

// Actions run the remote calls behind user intents and dispatch their
// results. Remote failures end up in State.Error as a display string and
// are also returned to the caller.
type Actions struct {
	store     *Store
	api       SessionAPI
	sender    Sender
	registry  Registry
	collector analytics.ApplicationDataCollector
	recorder  metrics.Recorder
	conf      ActionsConfig
	now       func() time.Time
	newId     func() string
}

func NewActions(store *Store, sessionAPI SessionAPI, sender Sender, registry Registry,
	collector analytics.ApplicationDataCollector, recorder metrics.Recorder, conf ActionsConfig) *Actions {
	if collector == nil {
		collector = analytics.NoopDataCollector{}
	}
	if recorder == nil {
		recorder = metrics.NewNoopRecorder()
	}
	if conf.SessionSearchLimit <= 0 {
		conf.SessionSearchLimit = 50
	}
	return &Actions{
		store:     store,
		api:       sessionAPI,
		sender:    sender,
		registry:  registry,
		collector: collector,
		recorder:  recorder,
		conf:      conf,
		now:       time.Now,
		newId:     uuid.NewString,
	}
}

func (a *Actions) Store() *Store {
	return a.store
}

func (a *Actions) beginLoading() func() {
	a.store.Dispatch(SetLoading(true))
	return func() {
		a.store.Dispatch(SetLoading(false))
	}
}

func (a *Actions) fail(op string, err error) error {
	logger.Error("action failed", zap.String("op", op), zap.Error(err))
	a.store.Dispatch(SetError(api.DisplayError(err)))
	var unavailable api.RemoteUnavailableError
	if errors.As(err, &unavailable) && unavailable.StatusCode == 0 {
		a.store.Dispatch(SetConnected(false))
	}
	return err
}

func (a *Actions) limitHistory(msgs []model.Message) []model.Message {
	if a.conf.HistoryLimit > 0 && len(msgs) > a.conf.HistoryLimit {
		return msgs[len(msgs)-a.conf.HistoryLimit:]
	}
	return msgs
}

func (a *Actions) systemMessage(content string) model.Message {
	return model.Message{
		Id:        a.newId(),
		Role:      model.ROLE_SYSTEM,
		Content:   content,
		Timestamp: a.now(),
	}
}

func (a *Actions) defaultSessionName(prefix string) string {
	return fmt.Sprintf("%s %s", prefix, a.now().Format("Jan 2, 2006 3:04 PM"))
}

// StartSession creates a remote thread and makes it the current session.
// A non-empty wizardType is resolved before anything is created remotely.
func (a *Actions) StartSession(ctx context.Context, name string, sessionContext string, wizardType model.WizardType) (*model.SessionSummary, error) {
	done := a.beginLoading()
	defer done()
	return a.startSession(ctx, name, sessionContext, wizardType)
}

func (a *Actions) startSession(ctx context.Context, name string, sessionContext string, wizardType model.WizardType) (*model.SessionSummary, error) {
	var def *model.WizardDefinition
	if wizardType != "" {
		d, err := a.registry.GetWizardDefinition(wizardType)
		if err != nil {
			return nil, a.fail("start session", err)
		}
		def = d
	}
	if name == "" {
		prefix := "Mortgage Chat"
		if def != nil {
			prefix = def.Title
		}
		name = a.defaultSessionName(prefix)
	}
	thread, err := a.api.CreateThread(ctx, model.ThreadMetadata{
		UserId:         a.conf.UserId,
		SessionName:    name,
		SessionContext: sessionContext,
		WizardType:     wizardType,
	})
	if err != nil {
		return nil, a.fail("start session", err)
	}
	session := model.SessionFromThread(*thread)
	logger.Info("session started", zap.String("thread", session.Id), zap.String("wizard", string(wizardType)))

	sessions := append([]model.SessionSummary{session}, a.store.GetState().Sessions...)
	a.store.Dispatch(SetConnected(true))
	a.store.Dispatch(SetSessions(sessions))
	a.store.Dispatch(SetCurrentSession(&session))
	a.store.Dispatch(ClearMessages())
	a.store.Dispatch(ClearError())
	if def != nil {
		a.store.Dispatch(StartWizard(def))
	} else {
		a.store.Dispatch(ClearWizard())
	}
	return &session, nil
}

// LoadSessions lists the user's threads, newest first.
func (a *Actions) LoadSessions(ctx context.Context) error {
	done := a.beginLoading()
	defer done()
	threads, err := a.api.SearchThreads(ctx, model.ThreadMetadata{UserId: a.conf.UserId}, a.conf.SessionSearchLimit)
	if err != nil {
		return a.fail("load sessions", err)
	}
	sessions := make([]model.SessionSummary, 0, len(threads))
	for _, t := range threads {
		sessions = append(sessions, model.SessionFromThread(t))
	}
	sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].CreatedAt.After(sessions[j].CreatedAt) })
	a.store.Dispatch(SetConnected(true))
	a.store.Dispatch(SetSessions(sessions))
	return nil
}

// SelectSession makes threadId current and loads its history. The wizard
// is restored from the thread's wizard type and remote progress.
func (a *Actions) SelectSession(ctx context.Context, threadId string) error {
	done := a.beginLoading()
	defer done()
	thread, err := a.api.GetThread(ctx, threadId)
	if err != nil {
		return a.fail("select session", err)
	}
	state, err := a.api.GetThreadState(ctx, threadId)
	if err != nil {
		return a.fail("select session", err)
	}
	session := model.SessionFromThread(*thread)
	res := runner.ToSyncResult(threadId, state)

	a.store.Dispatch(SetConnected(true))
	a.store.Dispatch(SetCurrentSession(&session))
	a.store.Dispatch(SetMessages(a.limitHistory(res.Messages)))
	a.store.Dispatch(ClearWizard())
	if session.WizardType != "" {
		def, err := a.registry.GetWizardDefinition(session.WizardType)
		if err != nil {
			logger.Warn("session has unknown wizard type", zap.String("thread", threadId), zap.String("wizard", string(session.WizardType)))
		} else {
			a.store.Dispatch(StartWizard(def))
			a.store.Dispatch(SyncWizard(snapshot(res)))
		}
	}
	a.store.Dispatch(ClearError())
	return nil
}

// SendMessage appends the user's message, runs it remotely and replaces
// the history with the thread's messages once the run settles.
func (a *Actions) SendMessage(ctx context.Context, content string, attachments []model.Attachment) error {
	done := a.beginLoading()
	defer done()
	return a.sendMessage(ctx, content, attachments)
}

func (a *Actions) sendMessage(ctx context.Context, content string, attachments []model.Attachment) error {
	cur := a.store.GetState().CurrentSession
	if cur == nil {
		return a.fail("send message", ErrNoSession)
	}
	msg := model.Message{
		Id:          a.newId(),
		Role:        model.ROLE_USER,
		Content:     content,
		Timestamp:   a.now(),
		Attachments: attachments,
	}
	a.store.Dispatch(AddMessage(msg))

	res, err := a.sender.Send(ctx, cur.Id, msg)
	if err != nil {
		a.collector.RecordRunOutcome(cur.Id, "", outcomeOf(err), err.Error())
		return a.fail("send message", err)
	}
	a.collector.RecordRunOutcome(cur.Id, res.RunId, metrics.OUTCOME_SUCCESS, "")

	if len(res.Messages) > 0 {
		a.store.Dispatch(SetMessages(a.limitHistory(res.Messages)))
	}
	before, after := a.store.Apply(SyncWizard(snapshot(res)))
	a.recordCompletedSteps(cur.Id, before.Wizard, after.Wizard)
	a.store.Dispatch(SetConnected(true))
	a.store.Dispatch(ClearError())
	return nil
}

// UploadDocuments sends a message describing the uploaded files. Only
// their names, sizes and types travel.
func (a *Actions) UploadDocuments(ctx context.Context, files []model.Attachment, note string) error {
	done := a.beginLoading()
	defer done()
	if len(files) == 0 {
		return a.fail("upload documents", errors.New("no documents to upload"))
	}
	content := note
	if content == "" {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.FileName
		}
		content = fmt.Sprintf("I've uploaded %d document(s): %s", len(files), strings.Join(names, ", "))
	}
	return a.sendMessage(ctx, content, files)
}

// ClearSession empties the current thread's history remotely and locally.
func (a *Actions) ClearSession(ctx context.Context) error {
	cur := a.store.GetState().CurrentSession
	if cur == nil {
		return a.fail("clear session", ErrNoSession)
	}
	done := a.beginLoading()
	defer done()
	if err := a.api.UpdateThreadState(ctx, cur.Id, map[string]any{"messages": []any{}}); err != nil {
		return a.fail("clear session", err)
	}
	a.store.Dispatch(ClearMessages())
	return nil
}

// DeleteSession clears the thread's history remotely and drops it from
// the session list. The remote thread itself is kept.
func (a *Actions) DeleteSession(ctx context.Context, threadId string) error {
	done := a.beginLoading()
	defer done()
	if err := a.api.UpdateThreadState(ctx, threadId, map[string]any{"messages": []any{}}); err != nil {
		return a.fail("delete session", err)
	}
	a.store.Dispatch(DeleteSession(threadId))
	return nil
}

// StartWizard opens a new session guided by wizardType. Unknown types fail
// before any remote thread is created.
func (a *Actions) StartWizard(ctx context.Context, wizardType model.WizardType) error {
	done := a.beginLoading()
	defer done()
	def, err := a.registry.GetWizardDefinition(wizardType)
	if err != nil {
		return a.fail("start wizard", err)
	}
	if _, err := a.startSession(ctx, "", "wizard:"+string(wizardType), wizardType); err != nil {
		return err
	}
	first := def.Steps[0]
	a.store.Dispatch(AddMessage(a.systemMessage(
		fmt.Sprintf("Starting %s. Step 1 of %d: %s", def.Title, len(def.Steps), first.Title))))
	return nil
}

// CompleteStep completes stepId locally and reports the new progress to
// the current thread.
func (a *Actions) CompleteStep(ctx context.Context, stepId string) error {
	if _, err := flow.CompleteStep(a.store.GetState().Wizard, stepId); err != nil {
		return err
	}
	before, after := a.store.Apply(CompleteWizardStep(stepId))
	if after.CurrentSession == nil || after.Wizard == nil {
		return nil
	}
	a.recordCompletedSteps(after.CurrentSession.Id, before.Wizard, after.Wizard)

	done := a.beginLoading()
	defer done()
	err := a.api.UpdateThreadState(ctx, after.CurrentSession.Id, map[string]any{
		"current_step":          after.Wizard.CurrentStepId,
		"completion_percentage": after.Wizard.CompletionPercentage,
	})
	if err != nil {
		return a.fail("complete step", err)
	}
	return nil
}

// GoToStep moves to stepId and announces the move in the conversation.
func (a *Actions) GoToStep(stepId string) error {
	w := a.store.GetState().Wizard
	if _, err := flow.GoToStep(w, stepId); err != nil {
		return err
	}
	idx := w.StepIndex(stepId)
	a.store.Dispatch(GoToWizardStep(stepId))
	a.store.Dispatch(AddMessage(a.systemMessage(
		fmt.Sprintf("Moved to step %d of %d: %s", idx+1, len(w.Steps), w.Steps[idx].Title))))
	return nil
}

func (a *Actions) UpdateStepData(stepId string, data map[string]any) error {
	if _, err := flow.UpdateStepData(a.store.GetState().Wizard, stepId, data); err != nil {
		return err
	}
	a.store.Dispatch(UpdateWizardStep(stepId, data))
	return nil
}

func (a *Actions) ExitWizard() {
	a.store.Dispatch(ClearWizard())
}

// SessionStats summarizes the current session's messages.
func (a *Actions) SessionStats() (*SessionStats, error) {
	return Stats(a.store.GetState(), a.now())
}

// ExportConversation returns the current session with its full history.
func (a *Actions) ExportConversation() (*ConversationExport, error) {
	return Export(a.store.GetState(), a.now())
}

func (a *Actions) recordCompletedSteps(threadId string, before *model.WizardState, after *model.WizardState) {
	if after == nil {
		return
	}
	for i, step := range after.Steps {
		if !step.IsCompleted {
			continue
		}
		if before != nil && i < len(before.Steps) && before.Steps[i].IsCompleted {
			continue
		}
		a.recorder.StepCompleted(string(after.WizardType), step.Id)
		a.collector.RecordStepCompleted(threadId, string(after.WizardType), step.Id, step.TargetProgress, after.CollectedData[step.Id])
	}
}

func snapshot(res *runner.SyncResult) flow.RemoteSnapshot {
	return flow.RemoteSnapshot{
		CollectedData:        res.CollectedData,
		CompletionPercentage: res.CompletionPercentage,
		ApplicationComplete:  res.ApplicationComplete,
	}
}

func outcomeOf(err error) string {
	var (
		timeout    api.RemoteRunTimeoutError
		failed     api.RemoteRunFailedError
		inProgress api.RunInProgressError
	)
	switch {
	case errors.As(err, &timeout):
		return metrics.OUTCOME_TIMEOUT
	case errors.As(err, &inProgress):
		return metrics.OUTCOME_REJECTED
	case errors.As(err, &failed):
		return metrics.OUTCOME_FAILED
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OUTCOME_CANCELLED
	}
	return metrics.OUTCOME_UNAVAILABLE
}
