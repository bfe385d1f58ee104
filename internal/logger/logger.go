package logger

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"facewatch/internal/config"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (debug/info/warning/error) to files and a colored console.
type Logger struct {
	console    *slog.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      []*os.File
	logDir     string
	debug      bool
	mu         sync.Mutex
}

// NewLogger creates a Logger writing to cfg.LogDirectory (console only when empty).
func NewLogger(cfg *config.Config) (*Logger, error) {
	return New(os.Stderr, cfg.LogDirectory, cfg.Debug)
}

// New builds a Logger on an arbitrary console writer.
func New(console io.Writer, logDir string, debug bool) (*Logger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	noColor := true
	if f, ok := console.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	l := &Logger{
		console: slog.New(tint.NewHandler(console, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
			NoColor:    noColor,
		})),
		logDir: logDir,
		debug:  debug,
	}

	if logDir == "" {
		l.infoLog = log.New(io.Discard, "", 0)
		l.warningLog = l.infoLog
		l.errorLog = l.infoLog
		return l, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := l.setupFileLoggers(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// setupFileLoggers opens one append-only file per level.
func (l *Logger) setupFileLoggers() error {
	open := func(name string) (*os.File, error) {
		file, err := os.OpenFile(filepath.Join(l.logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		l.files = append(l.files, file)
		return file, nil
	}

	infoFile, err := open(InfoFile)
	if err != nil {
		return err
	}
	warningFile, err := open(WarningFile)
	if err != nil {
		return err
	}
	errorFile, err := open(ErrorFile)
	if err != nil {
		return err
	}

	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	l.infoLog = log.New(infoFile, "INFO    ", flags)
	l.warningLog = log.New(warningFile, "WARNING ", flags)
	l.errorLog = log.New(errorFile, "ERROR   ", flags)
	return nil
}

// Debug writes a console-only entry when debug logging is enabled.
func (l *Logger) Debug(format string, v ...interface{}) {
	if !l.debug {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console.Debug(fmt.Sprintf(format, v...))
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Print(msg)
	l.console.Info(msg)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Print(msg)
	l.console.Warn(msg)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Print(msg)
	l.console.Error(msg)
}

// Directory returns the log directory, empty for console-only loggers.
func (l *Logger) Directory() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return nil
	}
	switch fileName {
	case InfoFile, WarningFile, ErrorFile:
	default:
		return fmt.Errorf("unknown log file %q", fileName)
	}

	l.mu.Lock()
	err := os.Truncate(filepath.Join(l.logDir, fileName), 0)
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to truncate %s: %w", fileName, err)
	}

	l.Info("Log file %s has been cleared", fileName)
	return nil
}

// Close releases the log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
