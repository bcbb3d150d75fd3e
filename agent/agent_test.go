package agent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohitkumar/loanwizard/analytics"
	"github.com/mohitkumar/loanwizard/config"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/remotetest"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) config.Config {
	return config.Config{
		RemoteConfig: config.RemoteConfig{
			BaseURL:         url,
			AssistantId:     "mortgage_processing",
			PollInterval:    time.Millisecond,
			MaxPollAttempts: 5,
			RequestTimeout:  time.Second,
		},
		StorageType: config.STORAGE_TYPE_INMEM,
		UserId:      "u1",
	}
}

func TestAgentWiresActions(t *testing.T) {
	remote := remotetest.NewServer()
	defer remote.Close()
	conf := testConfig(remote.URL)
	conf.AnalyticsConfig = analytics.DataCollectorConfig{
		FileName:      filepath.Join(t.TempDir(), "analytics.log"),
		CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
	}

	a, err := New(conf)
	require.NoError(t, err)
	defer a.Shutdown()

	require.NoError(t, a.Actions().StartWizard(context.Background(), model.WIZARD_TYPE_DOCUMENT_UPLOAD))
	require.NoError(t, a.Actions().SendMessage(context.Background(), "here is my passport", nil))
	state := a.Actions().Store().GetState()
	require.Equal(t, "identity", state.Wizard.CurrentStepId)
	require.Equal(t, "echo: here is my passport", state.Messages[len(state.Messages)-1].Content)

	cached, found := a.stateCache.GetThreadState(state.CurrentSession.Id)
	require.True(t, found)
	require.Len(t, cached.Values.Messages, 2)

	defs, err := a.MetadataService().ListWizardDefinitions()
	require.NoError(t, err)
	require.Len(t, defs, 3)
}

func TestAgentRejectsUnknownStorage(t *testing.T) {
	conf := testConfig("http://localhost:1")
	conf.StorageType = "cassandra"
	_, err := New(conf)
	require.Error(t, err)
}

func TestShutdownIsIdempotent(t *testing.T) {
	a, err := New(testConfig("http://localhost:1"))
	require.NoError(t, err)
	require.NoError(t, a.Shutdown())
	require.NoError(t, a.Shutdown())
}

func TestAgentRefreshesSessions(t *testing.T) {
	remote := remotetest.NewServer()
	defer remote.Close()
	remote.AddThread(model.Thread{
		ThreadId:  "t-1",
		CreatedAt: time.Now(),
		Metadata:  model.ThreadMetadata{UserId: "u1", SessionName: "Mortgage Chat"},
	}, model.ThreadStateValues{})
	conf := testConfig(remote.URL)
	conf.SessionRefresh = 5 * time.Millisecond

	a, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, a.Start())
	defer a.Shutdown()

	require.Eventually(t, func() bool {
		state := a.Actions().Store().GetState()
		return state.Connected && len(state.Sessions) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, "t-1", a.Actions().Store().GetState().Sessions[0].Id)
}
