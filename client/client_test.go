package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/remotetest"
	"github.com/stretchr/testify/require"
)

func newClient(srv *remotetest.Server) *SessionClient {
	return NewSessionClient(Config{BaseURL: srv.URL + "/", AssistantId: "mortgage_processing", RequestTimeout: time.Second})
}

func TestThreadLifecycle(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	c := newClient(srv)
	ctx := context.Background()

	thread, err := c.CreateThread(ctx, model.ThreadMetadata{UserId: "u1", SessionName: "Mortgage Chat"})
	require.NoError(t, err)
	require.NotEmpty(t, thread.ThreadId)
	require.Equal(t, "u1", thread.Metadata.UserId)

	got, err := c.GetThread(ctx, thread.ThreadId)
	require.NoError(t, err)
	require.Equal(t, thread.ThreadId, got.ThreadId)

	threads, err := c.SearchThreads(ctx, model.ThreadMetadata{UserId: "u1"}, 10)
	require.NoError(t, err)
	require.Len(t, threads, 1)

	threads, err = c.SearchThreads(ctx, model.ThreadMetadata{UserId: "someone-else"}, 10)
	require.NoError(t, err)
	require.Empty(t, threads)
}

func TestCreateAndGetRun(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	c := newClient(srv)
	ctx := context.Background()
	thread, err := c.CreateThread(ctx, model.ThreadMetadata{})
	require.NoError(t, err)

	run, err := c.CreateRun(ctx, thread.ThreadId, []model.RemoteMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "mortgage_processing", srv.LastRun().AssistantId)
	require.False(t, srv.LastRun().Stream)
	require.Equal(t, "hi", string(srv.LastRun().Input.Messages[0].Content))

	polled, err := c.GetRun(ctx, thread.ThreadId, run.RunId)
	require.NoError(t, err)
	require.Equal(t, model.RUN_SUCCESS, polled.Status)

	state, err := c.GetThreadState(ctx, thread.ThreadId)
	require.NoError(t, err)
	require.Equal(t, "echo: hi", state.LastMessage())
}

func TestCreateRunOnMissingThread(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()

	_, err := newClient(srv).CreateRun(context.Background(), "missing", nil)
	var unavailable api.RemoteUnavailableError
	require.True(t, errors.As(err, &unavailable))
	require.Equal(t, http.StatusNotFound, unavailable.StatusCode)
	require.Contains(t, unavailable.Error(), "does not exist")
}

func TestRemoteErrors(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, srv *remotetest.Server){
		"server error": func(t *testing.T, srv *remotetest.Server) {
			srv.Update(func(s *remotetest.Server) { s.FailAll = http.StatusBadGateway })
			_, err := newClient(srv).GetThreadState(context.Background(), "t")
			var unavailable api.RemoteUnavailableError
			require.True(t, errors.As(err, &unavailable))
			require.Equal(t, http.StatusBadGateway, unavailable.StatusCode)
		},
		"connection refused": func(t *testing.T, srv *remotetest.Server) {
			c := NewSessionClient(Config{BaseURL: srv.URL})
			srv.Close()
			_, err := c.GetThread(context.Background(), "t")
			var unavailable api.RemoteUnavailableError
			require.True(t, errors.As(err, &unavailable))
			require.Zero(t, unavailable.StatusCode)
		},
		"wrong field type": func(t *testing.T, srv *remotetest.Server) {
			srv.Update(func(s *remotetest.Server) { s.RawState = `{"values": {"completion_percentage": "half"}}` })
			_, err := newClient(srv).GetThreadState(context.Background(), "t")
			var payload api.InvalidPayloadError
			require.True(t, errors.As(err, &payload))
		},
		"completion out of range": func(t *testing.T, srv *remotetest.Server) {
			srv.Update(func(s *remotetest.Server) { s.RawState = `{"values": {"completion_percentage": 140}}` })
			_, err := newClient(srv).GetThreadState(context.Background(), "t")
			var payload api.InvalidPayloadError
			require.True(t, errors.As(err, &payload))
		},
		"missing fields default": func(t *testing.T, srv *remotetest.Server) {
			srv.Update(func(s *remotetest.Server) {
				s.RawState = `{"values": {"messages": [{"type": "ai", "content": [{"type": "text", "text": "Hello"}]}]}}`
			})
			state, err := newClient(srv).GetThreadState(context.Background(), "t")
			require.NoError(t, err)
			require.Equal(t, "Hello", state.LastMessage())
			require.Equal(t, model.ROLE_ASSISTANT, state.Values.Messages[0].MessageRole())
			require.Zero(t, state.Values.CompletionPercentage)
			require.False(t, state.Values.ApplicationComplete)
		},
		"cancelled context": func(t *testing.T, srv *remotetest.Server) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := newClient(srv).GetThread(ctx, "t")
			require.ErrorIs(t, err, context.Canceled)
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			srv := remotetest.NewServer()
			defer srv.Close()
			fn(t, srv)
		})
	}
}

func TestUpdateThreadStateClearsMessages(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	c := newClient(srv)
	ctx := context.Background()
	srv.AddThread(model.Thread{ThreadId: "t1"}, model.ThreadStateValues{
		Messages: []model.RemoteMessage{{Role: "user", Content: "hi"}},
	})

	require.NoError(t, c.UpdateThreadState(ctx, "t1", map[string]any{"messages": []any{}}))
	require.Empty(t, srv.State("t1").Messages)
	calls, values := srv.Patches()
	require.Equal(t, 1, calls)
	require.Contains(t, values, "messages")
}
