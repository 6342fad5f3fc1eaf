package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"antevus.backend/pkg/redact"
)

// redactingCore sanitizes log entries before the wrapped core encodes them.
// No unredacted secret may reach an encoder through this package.
type redactingCore struct {
	zapcore.Core
}

func (c redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return redactingCore{c.Core.With(sanitizeFields(fields))}
}

func (c redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = redact.SanitizeString(ent.Message)
	return c.Core.Write(ent, sanitizeFields(fields))
}

func sanitizeFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if redact.SensitiveField(f.Key) {
			out[i] = zap.String(f.Key, redact.Redacted)
			continue
		}
		switch f.Type {
		case zapcore.StringType:
			f.String = redact.SanitizeString(f.String)
		case zapcore.ErrorType:
			if err, ok := f.Interface.(error); ok && err != nil {
				f = zap.String(f.Key, redact.SanitizeString(err.Error()))
			}
		case zapcore.StringerType:
			if str, ok := f.Interface.(interface{ String() string }); ok {
				f = zap.String(f.Key, redact.SanitizeString(str.String()))
			}
		}
		out[i] = f
	}
	return out
}
