package workstream

// Field is one key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// Logger is the pipeline's logging contract. Every component logs through
// it, so callers can plug in zerolog (see logger/zerolog), a test recorder,
// or nothing at all.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// NoopLogger discards all output. It is the default wherever no Logger is
// configured.
type NoopLogger struct{}

func (n *NoopLogger) Debug(msg string, fields ...Field) {}
func (n *NoopLogger) Info(msg string, fields ...Field)  {}
func (n *NoopLogger) Warn(msg string, fields ...Field)  {}
func (n *NoopLogger) Error(msg string, fields ...Field) {}
