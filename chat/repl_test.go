package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mohitkumar/loanwizard/client"
	"github.com/mohitkumar/loanwizard/metadata"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/persistence/memory"
	"github.com/mohitkumar/loanwizard/remotetest"
	"github.com/mohitkumar/loanwizard/runner"
	"github.com/mohitkumar/loanwizard/store"
	"github.com/stretchr/testify/require"
)

func newActions(t *testing.T) (*store.Actions, *remotetest.Server) {
	t.Helper()
	srv := remotetest.NewServer()
	t.Cleanup(srv.Close)
	c := client.NewSessionClient(client.Config{BaseURL: srv.URL, AssistantId: "mortgage_processing"})
	loop := runner.NewSyncLoop(c, nil, nil, runner.Config{PollInterval: time.Millisecond, MaxPollAttempts: 5})
	registry := metadata.NewMetadataService(memory.NewDefinitionDao())
	return store.NewActions(store.NewStore(), c, loop, registry, nil, nil, store.ActionsConfig{}), srv
}

func TestReplWizardSession(t *testing.T) {
	actions, srv := newActions(t)
	input := strings.Join([]string{
		"/status",
		"/set income annual_income=85000 employment_type=salaried",
		"/complete",
		"/goto income",
		"/goto nowhere",
		"what rates can I get?",
		"/upload docs/paystub.pdf",
		"/bogus",
		"/quit",
		"ignored after quit",
	}, "\n")
	var out bytes.Buffer

	err := NewRepl(actions, strings.NewReader(input), &out).Run(context.Background(), model.WIZARD_TYPE_PRE_QUALIFICATION)
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "* Starting Pre-Qualification. Step 1 of 3: Income")
	require.Contains(t, text, "pre_qualification 0% (initiated)")
	require.Contains(t, text, "* Moved to step 1 of 3: Income")
	require.Contains(t, text, `! step "nowhere" does not exist`)
	require.Contains(t, text, "echo: what rates can I get?")
	require.Contains(t, text, "echo: I've uploaded 1 document(s): paystub.pdf")
	require.Contains(t, text, "! unknown command /bogus")
	require.NotContains(t, text, "ignored after quit")

	w := actions.Store().GetState().Wizard
	require.Equal(t, 35, w.CompletionPercentage)
	require.Equal(t, float64(85000), w.CollectedData["income"]["annual_income"])
	require.Equal(t, "salaried", w.CollectedData["income"]["employment_type"])

	req := srv.LastRun()
	require.Equal(t, "I've uploaded 1 document(s): paystub.pdf", string(req.Input.Messages[0].Content))
}

func TestReplStats(t *testing.T) {
	actions, _ := newActions(t)
	var out bytes.Buffer

	err := NewRepl(actions, strings.NewReader("hello\n/stats\n/quit\n"), &out).Run(context.Background(), "")
	require.NoError(t, err)
	require.Contains(t, out.String(), "2 messages (1 from you, 1 replies, 0 notices), 0 attachments")
}

func TestReplUnknownWizard(t *testing.T) {
	actions, _ := newActions(t)
	var out bytes.Buffer
	err := NewRepl(actions, strings.NewReader(""), &out).Run(context.Background(), "refinance")
	require.Error(t, err)
}

func TestParseAssignments(t *testing.T) {
	data, err := parseAssignments([]string{"a=1", "b=true", "c=hello"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": float64(1), "b": true, "c": "hello"}, data)

	_, err = parseAssignments([]string{"novalue"})
	require.Error(t, err)
}

func TestAttachments(t *testing.T) {
	files := attachments([]string{"a/b/statement.pdf", "notes"})
	require.Equal(t, "statement.pdf", files[0].FileName)
	require.Equal(t, "application/pdf", files[0].MimeType)
	require.Equal(t, "application/octet-stream", files[1].MimeType)
}
