package wavedump

type Logger interface {
	Info(message string, module string)
	Error(string)
}

type nopLogger struct{}

func (nopLogger) Info(string, string) {}
func (nopLogger) Error(string)        {}

var logger Logger = nopLogger{}

func SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	logger = l
}

var verbosity int

// SetVerbosity sets the detail of the messages logged by the library:
// 0 quiet, 1 run level, 2 per event, 3 per channel.
func SetVerbosity(v int) {
	verbosity = v
}
