package logging

import (
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap/zapcore"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sink receives mirrored records. *store.LogStore implements it.
type Sink interface {
	Log(level, component, message string) error
}

// sinkCore is a zapcore.Core writing to a Sink. The component is the logger
// name; structured fields are appended to the message as a JSON object.
type sinkCore struct {
	zapcore.LevelEnabler
	sink   Sink
	fields []zapcore.Field
}

// NewSinkCore returns a core that forwards records enabled by level to s.
func NewSinkCore(s Sink, level zapcore.LevelEnabler) zapcore.Core {
	return &sinkCore{LevelEnabler: level, sink: s}
}

func (c *sinkCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &sinkCore{LevelEnabler: c.LevelEnabler, sink: c.sink}
	clone.fields = append(append(clone.fields, c.fields...), fields...)
	return clone
}

func (c *sinkCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sinkCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	msg := ent.Message
	all := append(append([]zapcore.Field{}, c.fields...), fields...)
	if len(all) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range all {
			f.AddTo(enc)
		}
		if raw, err := json.Marshal(enc.Fields); err == nil {
			msg += " " + string(raw)
		}
	}
	component := ent.LoggerName
	if component == "" {
		component = "webwright"
	}
	return c.sink.Log(ent.Level.String(), component, msg)
}

func (c *sinkCore) Sync() error { return nil }
