package runner

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/cache"
	"github.com/mohitkumar/loanwizard/client"
	"github.com/mohitkumar/loanwizard/metrics"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/remotetest"
	"github.com/stretchr/testify/require"
)

var fastConfig = Config{PollInterval: time.Millisecond, MaxPollAttempts: 30}

func newRemote(t *testing.T) (*remotetest.Server, *client.SessionClient) {
	t.Helper()
	srv := remotetest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddThread(model.Thread{ThreadId: "t1"}, model.ThreadStateValues{})
	return srv, client.NewSessionClient(client.Config{BaseURL: srv.URL, AssistantId: "mortgage_processing"})
}

func userMessage(content string) model.Message {
	return model.Message{Id: "m1", Role: model.ROLE_USER, Content: content, Timestamp: time.Now()}
}

func TestSendPollsUntilSuccess(t *testing.T) {
	srv, c := newRemote(t)
	srv.Update(func(s *remotetest.Server) {
		s.PendingPolls = 2
		s.Reply = func(threadId string, input []model.RemoteMessage, values *model.ThreadStateValues) {
			remotetest.EchoReply(threadId, input, values)
			values.CollectedData = map[string]any{"full_name": "Jane Doe"}
			values.CompletionPercentage = 20
			values.CurrentStep = "employment"
		}
	})
	stateCache := cache.NewThreadStateCache(0)
	loop := NewSyncLoop(c, stateCache, nil, fastConfig)

	res, err := loop.Send(context.Background(), "t1", userMessage("my name is Jane"))
	require.NoError(t, err)

	createRun, getRun, getState := srv.Counts()
	require.Equal(t, 1, createRun)
	require.Equal(t, 3, getRun)
	require.Equal(t, 1, getState)

	require.Equal(t, "echo: my name is Jane", res.Reply)
	require.Equal(t, 20, res.CompletionPercentage)
	require.Equal(t, "employment", res.CurrentStep)
	require.Equal(t, "Jane Doe", res.CollectedData["full_name"])
	require.Len(t, res.Messages, 2)
	require.Equal(t, model.ROLE_USER, res.Messages[0].Role)
	require.Equal(t, model.ROLE_ASSISTANT, res.Messages[1].Role)

	cached, found := stateCache.GetThreadState("t1")
	require.True(t, found)
	require.Equal(t, float64(20), cached.Values.CompletionPercentage)
	require.False(t, loop.InFlight("t1"))
}

func TestSendTimesOutAfterMaxPolls(t *testing.T) {
	srv, c := newRemote(t)
	srv.Update(func(s *remotetest.Server) { s.PendingPolls = 1000 })
	loop := NewSyncLoop(c, nil, nil, fastConfig)

	_, err := loop.Send(context.Background(), "t1", userMessage("hello"))
	var timeout api.RemoteRunTimeoutError
	require.True(t, errors.As(err, &timeout), "got %v", err)
	require.Equal(t, 30, timeout.Attempts)

	_, getRun, getState := srv.Counts()
	require.Equal(t, 30, getRun)
	require.Equal(t, 0, getState)
}

func TestSendRunError(t *testing.T) {
	srv, c := newRemote(t)
	srv.Update(func(s *remotetest.Server) {
		s.PendingPolls = 1
		s.FinalStatus = model.RUN_ERROR
		s.ErrorOutput = "tool crashed"
	})
	loop := NewSyncLoop(c, nil, nil, fastConfig)

	_, err := loop.Send(context.Background(), "t1", userMessage("hello"))
	var failed api.RemoteRunFailedError
	require.True(t, errors.As(err, &failed))
	require.Equal(t, "tool crashed", failed.Detail)

	_, getRun, getState := srv.Counts()
	require.Equal(t, 2, getRun)
	require.Equal(t, 0, getState)
}

func TestSendCreateRunFails(t *testing.T) {
	srv, c := newRemote(t)
	srv.Update(func(s *remotetest.Server) { s.FailAll = http.StatusServiceUnavailable })
	loop := NewSyncLoop(c, nil, nil, fastConfig)

	_, err := loop.Send(context.Background(), "t1", userMessage("hello"))
	var unavailable api.RemoteUnavailableError
	require.True(t, errors.As(err, &unavailable))
	require.Equal(t, http.StatusServiceUnavailable, unavailable.StatusCode)
}

func TestSendUnknownThread(t *testing.T) {
	_, c := newRemote(t)
	loop := NewSyncLoop(c, nil, nil, fastConfig)

	_, err := loop.Send(context.Background(), "missing", userMessage("hello"))
	var unavailable api.RemoteUnavailableError
	require.True(t, errors.As(err, &unavailable))
	require.Equal(t, http.StatusNotFound, unavailable.StatusCode)
}

// stubClient blocks run status polls until release is closed.
type stubClient struct {
	mu      sync.Mutex
	polls   int
	polling chan struct{}
	release chan struct{}
	pollErr error
}

func (s *stubClient) CreateRun(ctx context.Context, threadId string, msgs []model.RemoteMessage) (*model.Run, error) {
	return &model.Run{RunId: "r1", ThreadId: threadId, Status: model.RUN_PENDING}, nil
}

func (s *stubClient) GetRun(ctx context.Context, threadId string, runId string) (*model.Run, error) {
	s.mu.Lock()
	s.polls++
	first := s.polls == 1
	s.mu.Unlock()
	if s.pollErr != nil {
		return nil, s.pollErr
	}
	if first && s.polling != nil {
		close(s.polling)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &model.Run{RunId: runId, Status: model.RUN_RUNNING}, nil
}

func (s *stubClient) GetThreadState(ctx context.Context, threadId string) (*model.ThreadState, error) {
	return &model.ThreadState{}, nil
}

func TestSecondSendIsRejectedWhileRunInFlight(t *testing.T) {
	stub := &stubClient{polling: make(chan struct{}), release: make(chan struct{})}
	loop := NewSyncLoop(stub, nil, nil, Config{PollInterval: time.Millisecond, MaxPollAttempts: 1})

	done := make(chan error, 1)
	go func() {
		_, err := loop.Send(context.Background(), "t1", userMessage("first"))
		done <- err
	}()
	<-stub.polling
	require.True(t, loop.InFlight("t1"))

	_, err := loop.Send(context.Background(), "t1", userMessage("second"))
	var inProgress api.RunInProgressError
	require.True(t, errors.As(err, &inProgress))
	require.Equal(t, "t1", inProgress.ThreadId)

	close(stub.release)
	var timeout api.RemoteRunTimeoutError
	require.True(t, errors.As(<-done, &timeout))
	require.False(t, loop.InFlight("t1"))
}

func TestSendStopsWhenContextCancelled(t *testing.T) {
	stub := &stubClient{polling: make(chan struct{}), release: make(chan struct{})}
	loop := NewSyncLoop(stub, nil, nil, fastConfig)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := loop.Send(ctx, "t1", userMessage("hello"))
		done <- err
	}()
	<-stub.polling
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("send did not stop after cancel")
	}
	require.Equal(t, 1, stub.polls)
}

func TestPollErrorIsNotRetried(t *testing.T) {
	stub := &stubClient{pollErr: api.RemoteUnavailableError{Op: "get run", StatusCode: 502}}
	recorder := metrics.NewPrometheusRecorder()
	loop := NewSyncLoop(stub, nil, recorder, fastConfig)

	_, err := loop.Send(context.Background(), "t1", userMessage("hello"))
	var unavailable api.RemoteUnavailableError
	require.True(t, errors.As(err, &unavailable))
	require.Equal(t, 1, stub.polls)
}

func TestSingleAttempt(t *testing.T) {
	srv, c := newRemote(t)
	srv.Update(func(s *remotetest.Server) { s.PendingPolls = 5 })
	loop := NewSyncLoop(c, nil, nil, Config{PollInterval: time.Millisecond, MaxPollAttempts: 1})

	_, err := loop.Send(context.Background(), "t1", userMessage("hello"))
	var timeout api.RemoteRunTimeoutError
	require.True(t, errors.As(err, &timeout))
	_, getRun, _ := srv.Counts()
	require.Equal(t, 1, getRun)
}

func TestFromRemoteMessage(t *testing.T) {
	msg := FromRemoteMessage("t1", 0, model.RemoteMessage{Type: "human", Content: "hi", Timestamp: "2024-05-01T10:00:00Z"})
	require.Equal(t, model.ROLE_USER, msg.Role)
	require.NotEmpty(t, msg.Id)
	require.Equal(t, 2024, msg.Timestamp.Year())

	msg = FromRemoteMessage("t1", 1, model.RemoteMessage{Id: "x", Role: "assistant", Content: "ok"})
	require.Equal(t, "x", msg.Id)
	require.True(t, msg.Timestamp.IsZero())
}

func TestDerivedMessageIdsAreStable(t *testing.T) {
	state := &model.ThreadState{Values: model.ThreadStateValues{Messages: []model.RemoteMessage{
		{Type: "human", Content: "hi"},
		{Type: "ai", Content: "hello"},
	}}}
	first := ToSyncResult("t1", state)
	second := ToSyncResult("t1", state)
	other := ToSyncResult("t2", state)

	require.Equal(t, first.Messages[0].Id, second.Messages[0].Id)
	require.Equal(t, first.Messages[1].Id, second.Messages[1].Id)
	require.NotEqual(t, first.Messages[0].Id, first.Messages[1].Id)
	require.NotEqual(t, first.Messages[0].Id, other.Messages[0].Id)
}

func TestToSyncResultNeverRoundsCompletionUp(t *testing.T) {
	for scenario, tc := range map[string]struct {
		remote float64
		local  int
	}{
		"almost done": {99.5, 99},
		"fraction":    {33.9, 33},
		"whole":       {40, 40},
		"done":        {100, 100},
	} {
		t.Run(scenario, func(t *testing.T) {
			res := ToSyncResult("t1", &model.ThreadState{Values: model.ThreadStateValues{CompletionPercentage: tc.remote}})
			require.Equal(t, tc.local, res.CompletionPercentage)
			require.False(t, res.ApplicationComplete)
		})
	}
}

func TestAwaitRunTracksStatus(t *testing.T) {
	srv, c := newRemote(t)
	srv.Update(func(s *remotetest.Server) { s.PendingPolls = 1 })
	loop := NewSyncLoop(c, nil, nil, fastConfig)

	created, err := c.CreateRun(context.Background(), "t1", []model.RemoteMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	run := model.NewRemoteRun(created, "t1", time.Now())
	require.Equal(t, "t1", run.ThreadId)
	require.False(t, run.Status.IsTerminal())

	require.NoError(t, loop.awaitRun(context.Background(), run))
	require.Equal(t, model.RUN_SUCCESS, run.Status)
}

type durationRecorder struct {
	metrics.NoopRecorder
	mu        sync.Mutex
	outcomes  []string
	durations []time.Duration
}

func (r *durationRecorder) RunFinished(outcome string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	r.durations = append(r.durations, d)
}

func TestRunDurationStartsWhenRunIsCreated(t *testing.T) {
	_, c := newRemote(t)
	recorder := &durationRecorder{}
	loop := NewSyncLoop(c, nil, recorder, fastConfig)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	loop.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 4 * time.Second)
	}

	_, err := loop.Send(context.Background(), "t1", userMessage("hello"))
	require.NoError(t, err)
	require.Equal(t, []string{metrics.OUTCOME_SUCCESS}, recorder.outcomes)
	require.Equal(t, []time.Duration{4 * time.Second}, recorder.durations)

	_, err = loop.Send(context.Background(), "missing", userMessage("hello"))
	require.Error(t, err)
	require.Equal(t, time.Duration(0), recorder.durations[1])
}
