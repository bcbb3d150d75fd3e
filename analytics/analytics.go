package analytics

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

// ApplicationDataCollector keeps an audit trail of application progress.
type ApplicationDataCollector interface {
	RecordStepCompleted(threadId string, wizardType string, stepId string, completion int, data map[string]any)
	RecordRunOutcome(threadId string, runId string, outcome string, reason string)
	Close() error
}

func NewDataCollector(config DataCollectorConfig) (ApplicationDataCollector, error) {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		return NewLogFileDataCollector(config.FileName)
	}
	return NoopDataCollector{}, nil
}

type NoopDataCollector struct{}

func (NoopDataCollector) RecordStepCompleted(string, string, string, int, map[string]any) {}

func (NoopDataCollector) RecordRunOutcome(string, string, string, string) {}

func (NoopDataCollector) Close() error {
	return nil
}
