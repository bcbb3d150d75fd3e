package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatchNotifiesSubscribers(t *testing.T) {
	s := NewStore()
	var got []State
	unsubscribe := s.Subscribe(func(state State) {
		got = append(got, state)
	})

	s.Dispatch(SetLoading(true))
	s.Dispatch(SetError("boom"))
	require.Len(t, got, 2)
	require.True(t, got[0].Loading)
	require.Empty(t, got[0].Error)
	require.Equal(t, "boom", got[1].Error)

	unsubscribe()
	unsubscribe()
	s.Dispatch(ClearError())
	require.Len(t, got, 2)
	require.Empty(t, s.GetState().Error)
}

func TestGetStateReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Dispatch(StartWizard(testDefinition()))
	s.Dispatch(AddMessage(model.Message{Id: "m1"}))

	state := s.GetState()
	state.Wizard.Steps[0].IsCompleted = true
	state.Messages[0].Content = "changed"

	fresh := s.GetState()
	require.False(t, fresh.Wizard.Steps[0].IsCompleted)
	require.Empty(t, fresh.Messages[0].Content)
}

func TestConcurrentDispatch(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				s.Dispatch(AddMessage(model.Message{Id: fmt.Sprintf("%d-%d", i, j)}))
				_ = s.GetState()
			}
		}(i)
	}
	wg.Wait()
	require.Len(t, s.GetState().Messages, 200)
}

func TestSubscribersSeeDispatchOrder(t *testing.T) {
	s := NewStore()
	var mu sync.Mutex
	var counts []int
	s.Subscribe(func(state State) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, len(state.Messages))
	})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Dispatch(AddMessage(model.Message{}))
		}()
	}
	wg.Wait()
	for i, c := range counts {
		require.Equal(t, i+1, c)
	}
}

func TestApplyReturnsAdjacentStates(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				msg := model.Message{Id: fmt.Sprintf("%d-%d", i, j)}
				before, after := s.Apply(AddMessage(msg))
				require.Len(t, after.Messages, len(before.Messages)+1)
				require.Equal(t, msg, after.Messages[len(after.Messages)-1])
			}
		}(i)
	}
	wg.Wait()
	require.Len(t, s.GetState().Messages, 100)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })
	return logs
}

func TestReduceDoesNotLog(t *testing.T) {
	logs := observeLogs(t)
	state := Reduce(InitialState(), StartWizard(testDefinition()))
	_ = Reduce(state, CompleteWizardStep("nope"))
	require.Zero(t, logs.Len())
}

func TestDispatchLogsWizardActions(t *testing.T) {
	logs := observeLogs(t)
	s := NewStore()
	s.Dispatch(StartWizard(testDefinition()))
	s.Dispatch(CompleteWizardStep("step1"))
	s.Dispatch(GoToWizardStep("nope"))

	require.Equal(t, 1, logs.FilterMessage("wizard started").Len())
	ignored := logs.FilterMessage("ignoring wizard action").All()
	require.Len(t, ignored, 1)
	require.Equal(t, "nope", ignored[0].ContextMap()["step"])
}
