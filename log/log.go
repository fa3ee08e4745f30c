package log

import "github.com/sirupsen/logrus"

// Logger 日志接口，可通过 SetLogger 替换默认实现
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

var logger Logger = newDefaultLogger()

// SetLogger 替换默认 logger
func SetLogger(l Logger) {
	if l != nil {
		logger = l
	}
}

func Debug(args ...interface{}) {
	logger.Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

func Info(args ...interface{}) {
	logger.Info(args...)
}

func Infof(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func Warn(args ...interface{}) {
	logger.Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

func Error(args ...interface{}) {
	logger.Error(args...)
}

func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

func Fatal(args ...interface{}) {
	logger.Fatal(args...)
}

func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

type defaultLogger struct {
	logger *logrus.Logger
}

func newDefaultLogger() *defaultLogger {
	return &defaultLogger{logger: logrus.New()}
}

// EnableDebug 打开 debug 级别日志
func EnableDebug() {
	if l, ok := logger.(*defaultLogger); ok {
		l.logger.SetLevel(logrus.DebugLevel)
	}
}

func (l *defaultLogger) Debug(args ...interface{}) {
	l.logger.Debug(args...)
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *defaultLogger) Info(args ...interface{}) {
	l.logger.Info(args...)
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *defaultLogger) Warn(args ...interface{}) {
	l.logger.Warn(args...)
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *defaultLogger) Error(args ...interface{}) {
	l.logger.Error(args...)
}

func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *defaultLogger) Fatal(args ...interface{}) {
	l.logger.Fatal(args...)
}

func (l *defaultLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatalf(format, args...)
}
