package cli

import (
	"github.com/YoshitsuguKoike/moltfocus/internal/app"
	"github.com/YoshitsuguKoike/moltfocus/internal/infra/fs"
)

// loggerBridge adapts the CLI logger to the app and fs Logger interfaces
type loggerBridge struct {
	logger app.Logger
}

func (b *loggerBridge) Debug(format string, args ...interface{}) {
	b.logger.Debug(format, args...)
}

func (b *loggerBridge) Info(format string, args ...interface{}) {
	b.logger.Info(format, args...)
}

func (b *loggerBridge) Warn(format string, args ...interface{}) {
	b.logger.Warn(format, args...)
}

func (b *loggerBridge) Error(format string, args ...interface{}) {
	b.logger.Error(format, args...)
}

// InitializeLoggers sets up loggers for all layers. The txn layer logs
// through the fs logger.
func InitializeLoggers(logger app.Logger) {
	bridge := &loggerBridge{logger: logger}
	app.SetLogger(bridge)
	fs.SetLogger(bridge)
}
