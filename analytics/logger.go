package analytics

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	file     *os.File
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		file:     logFile,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RecordStepCompleted(threadId string, wizardType string, stepId string, completion int, data map[string]any) {
	lc.logger.Info("step_completed", zap.String("thread", threadId), zap.String("wizard", wizardType),
		zap.String("step", stepId), zap.Int("completion", completion), zap.Any("data", data))
}

func (lc *LogFileDataCollector) RecordRunOutcome(threadId string, runId string, outcome string, reason string) {
	lc.logger.Info("run_outcome", zap.String("thread", threadId), zap.String("run", runId),
		zap.String("outcome", outcome), zap.String("reason", reason))
}

func (lc *LogFileDataCollector) Close() error {
	lc.logger.Sync()
	return lc.file.Close()
}
