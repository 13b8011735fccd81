package observability

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Redacted replaces every masked value.
const Redacted = "[REDACTED]"

// sensitiveKeys are field names whose values never reach a sink: the
// credential itself and the identity typed into the login form.
var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"auth_token":    {},
	"token":         {},
	"first_name":    {},
	"last_name":     {},
	"dob":           {},
	"last_4_ssn":    {},
}

// bearerPattern matches credentials embedded in free text, such as the CDP
// frames chromedp prints at debug level.
var bearerPattern = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`)

// RedactString masks every bearer credential inside s.
func RedactString(s string) string {
	if !strings.Contains(strings.ToLower(s), "bearer") {
		return s
	}
	return bearerPattern.ReplaceAllString(s, "${1}"+Redacted)
}

// redactingCore masks sensitive fields and embedded bearer tokens before
// delegating to the wrapped core.
type redactingCore struct {
	zapcore.Core
}

// NewRedactingCore wraps core so credentials and profile fields are masked.
func NewRedactingCore(core zapcore.Core) zapcore.Core {
	return &redactingCore{Core: core}
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(redactFields(fields))}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = RedactString(ent.Message)
	return c.Core.Write(ent, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		masked, changed := redactField(f)
		if !changed {
			if out != nil {
				out = append(out, f)
			}
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, i, len(fields))
			copy(out, fields[:i])
		}
		out = append(out, masked)
	}
	if out == nil {
		return fields
	}
	return out
}

func redactField(f zapcore.Field) (zapcore.Field, bool) {
	if _, ok := sensitiveKeys[strings.ToLower(f.Key)]; ok {
		return zap.String(f.Key, Redacted), true
	}
	if f.Type == zapcore.StringType {
		if masked := RedactString(f.String); masked != f.String {
			return zap.String(f.Key, masked), true
		}
	}
	if f.Type == zapcore.ErrorType {
		if err, ok := f.Interface.(error); ok && err != nil {
			if masked := RedactString(err.Error()); masked != err.Error() {
				return zap.String(f.Key, masked), true
			}
		}
	}
	return f, false
}
