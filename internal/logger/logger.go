// Package logger is the process-wide structured logger. Records go to a
// rotating file in the data directory, and to stderr as well in debug mode.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/agenda/internal/constants"
)

const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

var (
	// Logger is nil until Init runs; the helpers below are no-ops until then
	Logger *log.Logger

	mu   sync.Mutex
	file *lumberjack.Logger
)

type Config struct {
	Debug   bool
	DataDir string
	// Quiet keeps debug output off stderr while the TUI owns the terminal
	Quiet bool
}

// Init replaces the global logger. Calling it again closes the previous file.
func Init(cfg Config) error {
	logDir := filepath.Join(cfg.DataDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	fw := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.AppName+".log"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	level := log.WarnLevel
	var out io.Writer = fw
	if cfg.Debug {
		level = log.DebugLevel
		if !cfg.Quiet {
			out = io.MultiWriter(os.Stderr, fw)
		}
	}

	l := log.NewWithOptions(out, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
	})

	mu.Lock()
	prev := file
	file, Logger = fw, l
	mu.Unlock()

	if prev != nil {
		return prev.Close()
	}
	return nil
}

// Path is the active log file, or "" before Init
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return ""
	}
	return file.Filename
}

// Close flushes the log file and detaches the logger
func Close() error {
	mu.Lock()
	fw := file
	file, Logger = nil, nil
	mu.Unlock()
	if fw == nil {
		return nil
	}
	return fw.Close()
}

func current() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return Logger
}

func Debug(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Error(msg, keyvals...)
	}
}
