package logger

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Entry запись лога для внешних систем (CloudWatch Logs и т.п.)
type Entry struct {
	Timestamp time.Time
	Level     string
	Message   string
	Fields    map[string]interface{}
}

// Publisher принимает копии записей лога
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}

// Logger сохраняет привычный API (msg + пары ключ/значение), под капотом zap
type Logger struct {
	base  zapcore.Core
	level zapcore.Level
	sugar atomic.Pointer[zap.SugaredLogger]
}

func New(level string) *Logger {
	lvl := parseLevel(level)

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.ConsoleSeparator = " | "

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		lvl,
	)

	return newWithCore(core, lvl)
}

func newWithCore(core zapcore.Core, lvl zapcore.Level) *Logger {
	l := &Logger{base: core, level: lvl}
	l.sugar.Store(zap.New(core).Sugar())
	return l
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogPublisher дублирует все записи уровня логгера во внешний publisher.
// nil отключает дублирование.
func (l *Logger) SetLogPublisher(p Publisher) {
	if p == nil {
		l.sugar.Store(zap.New(l.base).Sugar())
		return
	}

	tee := zapcore.NewTee(l.base, &publisherCore{
		LevelEnabler: l.level,
		publisher:    p,
	})
	l.sugar.Store(zap.New(tee).Sugar())
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.sugar.Load().Debugw(msg, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.sugar.Load().Infow(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.sugar.Load().Warnw(msg, args...)
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.sugar.Load().Errorw(msg, args...)
}

// Sync сбрасывает буферы zap
func (l *Logger) Sync() error {
	return l.sugar.Load().Sync()
}

// publisherCore отправляет записи zap в Publisher
type publisherCore struct {
	zapcore.LevelEnabler
	publisher Publisher
	fields    []zapcore.Field
}

func (c *publisherCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &publisherCore{
		LevelEnabler: c.LevelEnabler,
		publisher:    c.publisher,
		fields:       merged,
	}
}

func (c *publisherCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *publisherCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	return c.publisher.Publish(context.Background(), Entry{
		Timestamp: ent.Time,
		Level:     ent.Level.CapitalString(),
		Message:   ent.Message,
		Fields:    enc.Fields,
	})
}

func (c *publisherCore) Sync() error {
	return nil
}
