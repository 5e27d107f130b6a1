package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes leveled logs to stdout and a rotating file.
type Logger struct {
	*logrus.Logger
	file *lumberjack.Logger
}

func New(dir, level string) (*Logger, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create logs folder failed: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "agrisense.log"),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     28,
	}

	l, err := NewWithWriter(io.MultiWriter(os.Stdout, file), level)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	l.file = file
	return l, nil
}

// NewWithWriter builds a Logger without file rotation.
func NewWithWriter(w io.Writer, level string) (*Logger, error) {
	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(lvl)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &Logger{Logger: base}, nil
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	l, _ := NewWithWriter(io.Discard, "panic")
	return l
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
