// Package logger writes timestamped, levelled lines to a log file. Every line
// is appended through a blockfile.File and synced before the call returns.
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/zerodha/logf"

	"blockstore/pkg/blockfile"
	"blockstore/pkg/buffer"
)

const timeFormat = "2006-01-02 15:04:05"

var ErrNotDirectory = errors.New("logger: not a directory")

type Config struct {
	// Dir must be an existing directory. The log file is
	// Dir/BaseName.log. With Console set an empty Dir logs to the console
	// only.
	Dir      string
	BaseName string

	// Debug enables Debug lines.
	Debug bool

	// Console echoes every line to ConsoleWriter, os.Stdout when nil.
	Console       bool
	ConsoleWriter io.Writer
}

// Logger is safe for concurrent use. The zero value is not usable; create
// one with New and release it with Close.
type Logger struct {
	mu      sync.Mutex
	active  bool
	debug   bool
	path    string
	file    *blockfile.File
	line    *buffer.DataBuffer
	console *logf.Logger

	// tail is where the next line goes. Bytes in [tail, file.Size()) were
	// allocated for a line that failed to write and are reused.
	tail uint64
}

// New opens (or creates) Dir/BaseName.log for appending.
func New(cfg Config) (*Logger, error) {
	l := &Logger{
		active: true,
		debug:  cfg.Debug,
	}
	if cfg.Dir != "" || !cfg.Console {
		if err := l.openFile(cfg.Dir, cfg.BaseName); err != nil {
			return nil, err
		}
	}
	if cfg.Console {
		w := cfg.ConsoleWriter
		if w == nil {
			w = os.Stdout
		}
		console := logf.New(logf.Opts{
			Writer:          w,
			Level:           logf.DebugLevel,
			TimestampFormat: timeFormat,
		})
		l.console = &console
	}
	return l, nil
}

func (l *Logger) openFile(dir, base string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	path := filepath.Join(dir, base+".log")
	file, err := blockfile.Open(path, false, blockfile.WithPerm(0644))
	if err != nil {
		return err
	}
	line, err := buffer.New(1, buffer.WithBlockSize(256))
	if err != nil {
		_ = file.Close()
		return err
	}

	l.path = path
	l.file = file
	l.line = line
	l.tail = file.Size()
	return nil
}

// Path returns the path of the log file, or "" for a console only logger.
func (l *Logger) Path() string { return l.path }

// SetDebug enables or disables Debug lines.
func (l *Logger) SetDebug(debug bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.debug = debug
	l.mu.Unlock()
}

// Debug logs msg if debug lines are enabled, see Config.Debug and SetDebug.
func (l *Logger) Debug(msg string) bool { return l.log(logf.DebugLevel, msg) }

func (l *Logger) Info(msg string) bool { return l.log(logf.InfoLevel, msg) }

func (l *Logger) Warning(msg string) bool { return l.log(logf.WarnLevel, msg) }

func (l *Logger) Error(msg string) bool { return l.log(logf.ErrorLevel, msg) }

func (l *Logger) Debugf(format string, args ...any) bool {
	return l.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) bool {
	return l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warningf(format string, args ...any) bool {
	return l.Warning(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) bool {
	return l.Error(fmt.Sprintf(format, args...))
}

func prefix(level logf.Level) string {
	switch level {
	case logf.DebugLevel:
		return "DEBUG: "
	case logf.WarnLevel:
		return "WARNING: "
	case logf.ErrorLevel:
		return "ERROR: "
	default:
		return "INFO: "
	}
}

// log returns false when the line was not written: the logger is closed,
// the level is disabled or the file rejected the write.
func (l *Logger) log(level logf.Level, msg string) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active || (level == logf.DebugLevel && !l.debug) {
		return false
	}

	if l.console != nil {
		switch level {
		case logf.DebugLevel:
			l.console.Debug(msg)
		case logf.WarnLevel:
			l.console.Warn(msg)
		case logf.ErrorLevel:
			l.console.Error(msg)
		default:
			l.console.Info(msg)
		}
	}

	line := time.Now().Format(timeFormat) + " " + prefix(level) + msg + "\n"
	return l.appendLine(line) == nil
}

func (l *Logger) appendLine(line string) error {
	if l.file == nil {
		return nil
	}
	l.line.Reset()
	if err := l.line.Append([]byte(line)); err != nil {
		return err
	}

	n := uint64(len(line))
	if size := l.file.Size(); l.tail+n > size {
		if err := l.file.Allocate(l.tail+n-size, 1); err != nil {
			return err
		}
	}
	if err := l.file.WriteSegment(l.line, l.tail, n, 0); err != nil {
		return err
	}
	l.tail += n
	return nil
}

// Close stops the logger and closes the log file. Later calls are no-ops and
// later log calls return false.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active {
		return nil
	}
	l.active = false

	if l.file == nil {
		return nil
	}
	var result *multierror.Error
	if err := l.file.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := l.line.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
