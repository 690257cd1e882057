package blecore

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used by every package of the stack.
// DBG, INF, WRN and ERR map onto Debug, Info, Warn and Error.
type Logger interface {
	Info(...interface{})
	Debug(...interface{})
	Error(...interface{})
	Warn(...interface{})

	Infof(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	Warnf(string, ...interface{})

	ChildLogger(tags map[string]interface{}) Logger
}

// Log levels, lowest verbosity first.
const (
	LevelNone = iota
	LevelErr
	LevelWrn
	LevelInf
	LevelDbg
)

var logger Logger
var loggerMu sync.Mutex

var levelMap = map[string]logrus.Level{
	"none":  logrus.PanicLevel,
	"err":   logrus.ErrorLevel,
	"wrn":   logrus.WarnLevel,
	"inf":   logrus.InfoLevel,
	"dbg":   logrus.DebugLevel,
	"error": logrus.ErrorLevel,
	"warn":  logrus.WarnLevel,
	"info":  logrus.InfoLevel,
	"debug": logrus.DebugLevel,
	"trace": logrus.TraceLevel,
}

// SetLogLevel changes the level of the default logger.
func SetLogLevel(level string) error {
	lv, ok := levelMap[strings.ToLower(level)]
	if !ok {
		return Wrapf(EINVAL, "log level", "unknown level %q", level)
	}

	l := GetLogger()
	if lg, ok := l.(*defaultLogger); ok {
		lg.Entry.Logger.SetLevel(lv)
		return nil
	}

	// clean this up later
	l.Error("non-default logger, don't know how to set level")
	return ENOTSUP
}

// LevelEnabled reports whether messages of the given level (LevelErr..LevelDbg)
// would be emitted. Non-default loggers are assumed to filter for themselves.
func LevelEnabled(level int) bool {
	if level <= LevelNone {
		return false
	}

	lg, ok := GetLogger().(*defaultLogger)
	if !ok {
		return true
	}

	var lv logrus.Level
	switch level {
	case LevelErr:
		lv = logrus.ErrorLevel
	case LevelWrn:
		lv = logrus.WarnLevel
	case LevelInf:
		lv = logrus.InfoLevel
	default:
		lv = logrus.DebugLevel
	}
	return lg.Entry.Logger.IsLevelEnabled(lv)
}

func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func GetLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		logger = buildDefaultLogger()
	}

	return logger
}

// PkgLogger returns a child of the current logger tagged with the package name.
func PkgLogger(pkg string) Logger {
	return GetLogger().ChildLogger(map[string]interface{}{"pkg": pkg})
}

// Hexdump logs data at debug level, prefixed by the formatted message.
func Hexdump(l Logger, data []byte, format string, args ...interface{}) {
	if !LevelEnabled(LevelDbg) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.Debugf("%s (%d bytes)\n%s", msg, len(data), strings.TrimRight(hex.Dump(data), "\n"))
}

type defaultLogger struct {
	*logrus.Entry
}

func buildDefaultLogger() Logger {
	l := &logrus.Logger{
		Formatter: &logrus.TextFormatter{DisableTimestamp: true},
		Level:     logrus.InfoLevel,
		Out:       os.Stderr,
		Hooks:     make(logrus.LevelHooks),
	}

	return &defaultLogger{Entry: l.WithFields(map[string]interface{}{})}
}

func (d *defaultLogger) ChildLogger(ff map[string]interface{}) Logger {
	nl := &defaultLogger{d.Entry.WithFields(ff)}
	return nl
}
