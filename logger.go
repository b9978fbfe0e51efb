package gogine

// Logger defines the interface for engine logging.
// Messages carry structured key-value pairs:
//
//	logger.Info("Starting subsystem", "subsystem", "render")
//
// logging.ZapLogger is the production implementation.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
