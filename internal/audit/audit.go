// Package audit keeps the human-readable action log: one
// "<RFC3339 UTC timestamp> - <message>" line per significant action.
package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFileName is the audit file name used when none is configured.
const DefaultFileName = "actions.log"

// Log appends audit lines to a file through a dedicated zap core.
//
// Thread-safety: Record is safe for concurrent use; the file sink is locked
// by zapcore.Lock and every line is written with a single write call.
type Log struct {
	logger *zap.Logger
	file   *os.File
	path   string
}

type options struct {
	clock       zapcore.Clock
	errorOutput zapcore.WriteSyncer
}

// Option configures Open.
type Option func(*options)

// WithClock overrides the time source for line timestamps.
func WithClock(c zapcore.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithErrorOutput sets where sink failures are reported. Default: stderr.
func WithErrorOutput(w zapcore.WriteSyncer) Option {
	return func(o *options) {
		o.errorOutput = w
	}
}

// Open opens (creating if needed) the audit file at path for appending.
func Open(path string, opts ...Option) (*Log, error) {
	o := options{
		clock:       zapcore.DefaultClock,
		errorOutput: zapcore.Lock(os.Stderr),
	}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}

	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		EncodeTime:       utcRFC3339,
		ConsoleSeparator: " - ",
		LineEnding:       zapcore.DefaultLineEnding,
	})
	core := zapcore.NewCore(encoder, zapcore.Lock(f), zapcore.DebugLevel)

	return &Log{
		logger: zap.New(core, zap.WithClock(o.clock), zap.ErrorOutput(o.errorOutput)),
		file:   f,
		path:   path,
	}, nil
}

// Record appends one line. It never fails the caller: sink errors are
// reported to the error output and otherwise dropped.
func (l *Log) Record(msg string) {
	if l == nil {
		return
	}
	l.logger.Info(oneLine(msg))
}

// Read returns the whole log. A log that was never written reads as empty.
func (l *Log) Read() ([]byte, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read audit log %s: %w", l.path, err)
	}
	return data, nil
}

// Path returns the audit file path.
func (l *Log) Path() string {
	return l.path
}

// Close flushes and closes the file.
func (l *Log) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = l.logger.Sync()
	return l.file.Close()
}

func utcRFC3339(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339))
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// oneLine keeps each entry on a single line.
func oneLine(msg string) string {
	return lineBreaks.Replace(msg)
}
