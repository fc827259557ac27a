package logger

import "go.mongodb.org/mongo-driver/v2/mongo/options"

// mongoSink adapts our Logger to the mongo driver's logging interface
type mongoSink struct {
	logger *Logger
}

// GetMongoSink returns a sink the mongo driver can log through
func (l *Logger) GetMongoSink() options.LogSink {
	return &mongoSink{logger: l}
}

func (m *mongoSink) Info(level int, message string, keysAndValues ...interface{}) {
	m.logger.Debugw(message, append(keysAndValues, "driver_level", level)...)
}

func (m *mongoSink) Error(err error, message string, keysAndValues ...interface{}) {
	m.logger.Errorw(message, append(keysAndValues, "error", err)...)
}
