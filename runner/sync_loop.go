package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/cache"
	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/metrics"
	"github.com/mohitkumar/loanwizard/model"
	"go.uber.org/zap"
)

var errRunNotFinished = errors.New("run not finished")

type RunClient interface {
	CreateRun(ctx context.Context, threadId string, msgs []model.RemoteMessage) (*model.Run, error)
	GetRun(ctx context.Context, threadId string, runId string) (*model.Run, error)
	GetThreadState(ctx context.Context, threadId string) (*model.ThreadState, error)
}

type Config struct {
	PollInterval    time.Duration
	MaxPollAttempts int
}

// SyncResult is the thread state read back after a successful run.
type SyncResult struct {
	RunId                string
	Reply                string
	CollectedData        map[string]any
	CompletionPercentage int
	ApplicationComplete  bool
	CurrentStep          string
	CurrentPhase         string
	Messages             []model.Message
}

// SyncLoop submits a message as a run, waits for the run to settle and
// reads the thread state back. At most one run per thread is in flight.
type SyncLoop struct {
	client   RunClient
	cache    *cache.ThreadStateCache
	recorder metrics.Recorder
	conf     Config
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSyncLoop(client RunClient, stateCache *cache.ThreadStateCache, recorder metrics.Recorder, conf Config) *SyncLoop {
	if conf.PollInterval <= 0 {
		conf.PollInterval = time.Second
	}
	if conf.MaxPollAttempts <= 0 {
		conf.MaxPollAttempts = 30
	}
	if recorder == nil {
		recorder = metrics.NewNoopRecorder()
	}
	return &SyncLoop{
		client:   client,
		cache:    stateCache,
		recorder: recorder,
		conf:     conf,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
}

// Send runs msg against threadId. A second Send for the same thread while
// one is running fails with RunInProgressError.
func (l *SyncLoop) Send(ctx context.Context, threadId string, msg model.Message) (*SyncResult, error) {
	if !l.acquire(threadId) {
		l.recorder.RunFinished(metrics.OUTCOME_REJECTED, 0)
		return nil, api.RunInProgressError{ThreadId: threadId}
	}
	defer l.release(threadId)

	res, run, err := l.send(ctx, threadId, msg)
	var duration time.Duration
	if run != nil {
		duration = l.now().Sub(run.StartedAt)
	}
	l.recorder.RunFinished(outcome(err), duration)
	return res, err
}

func (l *SyncLoop) InFlight(threadId string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.inFlight[threadId]
	return ok
}

func (l *SyncLoop) acquire(threadId string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.inFlight[threadId]; ok {
		return false
	}
	l.inFlight[threadId] = struct{}{}
	return true
}

func (l *SyncLoop) release(threadId string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, threadId)
}

func (l *SyncLoop) send(ctx context.Context, threadId string, msg model.Message) (*SyncResult, *model.RemoteRun, error) {
	created, err := l.client.CreateRun(ctx, threadId, []model.RemoteMessage{model.ToRemoteMessage(msg)})
	if err != nil {
		logger.Error("error creating run", zap.String("thread", threadId), zap.Error(err))
		return nil, nil, err
	}
	run := model.NewRemoteRun(created, threadId, l.now())
	l.recorder.RunStarted()
	logger.Info("run created", zap.String("thread", threadId), zap.String("run", run.RunId))

	if err := l.awaitRun(ctx, run); err != nil {
		return nil, run, err
	}

	state, err := l.client.GetThreadState(ctx, threadId)
	if err != nil {
		logger.Error("error reading thread state", zap.String("thread", threadId), zap.String("run", run.RunId), zap.Error(err))
		return nil, run, err
	}
	if l.cache != nil {
		l.cache.SaveThreadState(threadId, *state)
	}
	res := ToSyncResult(threadId, state)
	res.RunId = run.RunId
	logger.Info("run synced", zap.String("thread", threadId), zap.String("run", run.RunId),
		zap.Int("completion", res.CompletionPercentage), zap.Bool("complete", res.ApplicationComplete))
	return res, run, nil
}

// awaitRun waits one interval, then polls run until it reaches a terminal
// status or MaxPollAttempts polls were made. run.Status follows every poll.
func (l *SyncLoop) awaitRun(ctx context.Context, run *model.RemoteRun) error {
	timer := time.NewTimer(l.conf.PollInterval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
	}

	attempts := 0
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(l.conf.PollInterval), uint64(l.conf.MaxPollAttempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		attempts++
		l.recorder.PollAttempt()
		polled, err := l.client.GetRun(ctx, run.ThreadId, run.RunId)
		if err != nil {
			logger.Error("error polling run", zap.String("thread", run.ThreadId), zap.String("run", run.RunId), zap.Error(err))
			return backoff.Permanent(err)
		}
		run.Status = polled.Status
		switch run.Status {
		case model.RUN_SUCCESS:
			return nil
		case model.RUN_ERROR:
			logger.Warn("run failed", zap.String("thread", run.ThreadId), zap.String("run", run.RunId))
			return backoff.Permanent(api.RemoteRunFailedError{RunId: run.RunId, Detail: polled.ErrorDetail()})
		}
		logger.Debug("run not finished", zap.String("run", run.RunId), zap.String("status", string(run.Status)), zap.Int("attempt", attempts))
		return errRunNotFinished
	}, b)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, errRunNotFinished) {
		logger.Warn("run timed out", zap.String("thread", run.ThreadId), zap.String("run", run.RunId), zap.Int("attempts", attempts))
		return api.RemoteRunTimeoutError{RunId: run.RunId, Attempts: attempts}
	}
	return err
}

// ToSyncResult flattens a thread state into the values the store follows.
// Completion is truncated so it never reads higher than the remote reported.
func ToSyncResult(threadId string, state *model.ThreadState) *SyncResult {
	v := state.Values
	msgs := make([]model.Message, 0, len(v.Messages))
	for i, rm := range v.Messages {
		msgs = append(msgs, FromRemoteMessage(threadId, i, rm))
	}
	return &SyncResult{
		Reply:                state.LastMessage(),
		CollectedData:        v.CollectedData,
		CompletionPercentage: int(math.Floor(v.CompletionPercentage)),
		ApplicationComplete:  v.ApplicationComplete,
		CurrentStep:          v.CurrentStep,
		CurrentPhase:         v.CurrentPhase,
		Messages:             msgs,
	}
}

// FromRemoteMessage converts the index-th message of threadId. Messages
// without an id get one derived from their position, so repeated reads of
// the same thread yield the same ids.
func FromRemoteMessage(threadId string, index int, rm model.RemoteMessage) model.Message {
	msg := model.Message{
		Id:      rm.Id,
		Role:    rm.MessageRole(),
		Content: string(rm.Content),
	}
	if msg.Id == "" {
		msg.Id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", threadId, index))).String()
	}
	if ts, err := time.Parse(time.RFC3339, rm.Timestamp); err == nil {
		msg.Timestamp = ts
	}
	return msg
}

func outcome(err error) string {
	var (
		failed      api.RemoteRunFailedError
		timeout     api.RemoteRunTimeoutError
		unavailable api.RemoteUnavailableError
	)
	switch {
	case err == nil:
		return metrics.OUTCOME_SUCCESS
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OUTCOME_CANCELLED
	case errors.As(err, &timeout):
		return metrics.OUTCOME_TIMEOUT
	case errors.As(err, &failed):
		return metrics.OUTCOME_FAILED
	case errors.As(err, &unavailable):
		return metrics.OUTCOME_UNAVAILABLE
	}
	return metrics.OUTCOME_FAILED
}
