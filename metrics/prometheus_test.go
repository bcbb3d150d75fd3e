package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, p *PrometheusRecorder, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := p.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestPrometheusRecorder(t *testing.T) {
	p := NewPrometheusRecorder()
	p.RunStarted()
	p.RunStarted()
	p.PollAttempt()
	p.RunFinished(OUTCOME_SUCCESS, 10*time.Millisecond)
	p.RunFinished(OUTCOME_TIMEOUT, time.Second)
	p.StepCompleted("mortgage_application", "personal_info")

	require.Equal(t, float64(2), counterValue(t, p, "loanwizard_runs_started_total", nil))
	require.Equal(t, float64(1), counterValue(t, p, "loanwizard_run_polls_total", nil))
	require.Equal(t, float64(1), counterValue(t, p, "loanwizard_runs_finished_total", map[string]string{"outcome": OUTCOME_TIMEOUT}))
	require.Equal(t, float64(1), counterValue(t, p, "loanwizard_steps_completed_total", map[string]string{"wizard": "mortgage_application", "step": "personal_info"}))
}

func TestRecordersAreIndependent(t *testing.T) {
	a := NewPrometheusRecorder()
	b := NewPrometheusRecorder()
	a.RunStarted()
	require.Equal(t, float64(0), counterValue(t, b, "loanwizard_runs_started_total", nil))
}

func TestHandlerServesMetrics(t *testing.T) {
	p := NewPrometheusRecorder()
	p.RunStarted()
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "loanwizard_runs_started_total 1")
}
