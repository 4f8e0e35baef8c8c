package host

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-gojs/value"
)

func (e *Env) newConsole() *value.Object {
	c := value.NewObject()
	levels := []struct {
		name  string
		level zapcore.Level
	}{
		{"log", zapcore.InfoLevel},
		{"info", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, l := range levels {
		level := l.level
		_ = c.Set(l.name, value.NewFunction(l.name, func(_ context.Context, _ value.Value, args []value.Value) (value.Value, error) {
			if ce := e.logger.Check(level, formatConsole(args)); ce != nil {
				ce.Write(zap.String("source", "console"))
			}
			return value.Undefined{}, nil
		}))
	}
	return c
}

func formatConsole(args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.ToString(a)
	}
	return strings.Join(parts, " ")
}
