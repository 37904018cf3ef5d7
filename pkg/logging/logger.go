package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Logger writes component-tagged entries to the process log.
// All components of one process share a single JSON-lines file,
// <log dir>/<session-id>-zotbridge.log. Stdout is never written to: it
// carries the MCP protocol.
type Logger struct {
	component string

	once    sync.Once
	sugar   *zap.SugaredLogger
	initErr error
}

// Options configures the process log. Call Configure before the first
// entry is written; later calls only change the level.
type Options struct {
	// Dir defaults to ~/.zotbridge/logs.
	Dir string
	// Level is debug, info, warn or error. Defaults to info.
	Level string
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// stateMu guards logDir and the opened sink.
	stateMu sync.Mutex
	logDir  string
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	rootOnce sync.Once
	root     *zap.Logger
	rootErr  error
	rootFile *os.File
	logPath  string
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// Configure sets the log directory and level.
func Configure(opts Options) error {
	if opts.Level != "" {
		if err := SetLevel(opts.Level); err != nil {
			return err
		}
	}
	if opts.Dir != "" {
		stateMu.Lock()
		logDir = opts.Dir
		stateMu.Unlock()
	}
	return nil
}

// SetLevel changes the minimum level of every logger at runtime.
func SetLevel(name string) error {
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(lvl)
	return nil
}

// initLogDirectory ensures the log directory exists and returns it.
// Callers hold stateMu.
func initLogDirectory() (string, error) {
	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		logDir = filepath.Join(homeDir, ".zotbridge", "logs")
	}
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	return logDir, nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.NameKey = "component"
	return cfg
}

// rootLogger builds the shared zap logger on first use. When the log file
// cannot be opened it falls back to stderr and reports why.
func rootLogger() (*zap.Logger, error) {
	rootOnce.Do(func() {
		sink, err := openLogFile()
		if err != nil {
			rootErr = err
			sink = zapcore.Lock(os.Stderr)
		}
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, level)
		logger := zap.New(core).With(zap.String("session", getSessionID()))
		if rootErr != nil {
			logger.Warn("file logging unavailable, using stderr", zap.Error(rootErr))
		}
		stateMu.Lock()
		root = logger
		stateMu.Unlock()
	})
	return root, rootErr
}

func openLogFile() (zapcore.WriteSyncer, error) {
	stateMu.Lock()
	defer stateMu.Unlock()
	dir, err := initLogDirectory()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-zotbridge.log", getSessionID()))
	// Append mode: a restarted process with the same session keeps history.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	rootFile = file
	logPath = path
	return zapcore.AddSync(file), nil
}

// NewLogger creates a logger for a component and opens the process log if
// needed. On failure it still returns a usable logger writing to stderr,
// along with the error, so callers can warn about fallback mode.
func NewLogger(component string) (*Logger, error) {
	l := Component(component)
	l.resolve()
	return l, l.initErr
}

// Component returns a logger for component that opens the process log on
// its first entry. It is meant for package-level loggers.
func Component(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) resolve() *zap.SugaredLogger {
	l.once.Do(func() {
		r, err := rootLogger()
		l.initErr = err
		l.sugar = r.Named(l.component).Sugar()
	})
	return l.sugar
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.resolve().Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.resolve().Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.resolve().Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.resolve().Errorf(format, v...)
}

// With returns a child logger that adds key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	child := &Logger{component: l.component}
	child.once.Do(func() {
		child.sugar = l.resolve().With(keysAndValues...)
		child.initErr = l.initErr
	})
	return child
}

// Slog returns the component logger as a *slog.Logger for libraries that
// log through log/slog. Entries land in the same process log.
func (l *Logger) Slog() *slog.Logger {
	l.resolve()
	r, _ := rootLogger()
	return slog.New(zapslog.NewHandler(r.Core(), zapslog.WithName(l.component)))
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return getSessionID()
}

// LogPath returns the path to the log file, empty in fallback mode.
func (l *Logger) LogPath() string {
	l.resolve()
	stateMu.Lock()
	defer stateMu.Unlock()
	return logPath
}

// Close flushes buffered entries. The shared file stays open for other
// components; Sync at process exit.
func (l *Logger) Close() error {
	if l.sugar == nil {
		return nil
	}
	return Sync()
}

// Sync flushes the process log.
func Sync() error {
	stateMu.Lock()
	r, file := root, rootFile
	stateMu.Unlock()
	if r == nil || file == nil {
		// stderr may not support fsync.
		return nil
	}
	return r.Sync()
}
