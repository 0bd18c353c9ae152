package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"apphost/internal/config"

	"github.com/rs/zerolog"
)

var (
	mu            sync.RWMutex
	defaultLogger = newLogger(consoleWriter(), zerolog.InfoLevel)
)

func consoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// GetLogLevelFromString 将字符串转换为日志级别
func GetLogLevelFromString(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel // 默认级别
	}
}

/**
 * Initialize the logging system
 * @param {config.LogConfig} cfg - Level and output path
 * @description
 * - "console" or empty path writes human readable lines to stderr
 * - Any other path appends JSON lines to that file, creating its directory
 * - Falls back to stderr when the file cannot be opened
 */
func InitLogger(cfg *config.LogConfig) {
	var output io.Writer
	if cfg.Path == "console" || cfg.Path == "" {
		output = consoleWriter()
	} else {
		output = setupLogFileOutput(cfg.Path)
	}
	SetOutput(output, GetLogLevelFromString(cfg.Level))
}

// SetOutput replaces the destination and level of the default logger.
func SetOutput(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = newLogger(w, level)
}

// setupLogFileOutput 设置日志文件输出
func setupLogFileOutput(logPath string) io.Writer {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "create log directory failed: %v\n", err)
		return os.Stderr
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file failed: %v\n", err)
		return os.Stderr
	}
	return file
}

// L returns the default logger for structured fields.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := defaultLogger
	return &l
}

// With returns a child logger annotated with one field.
func With(key, value string) zerolog.Logger {
	return L().With().Str(key, value).Logger()
}

func Debug(v ...interface{}) {
	L().Debug().Msg(fmt.Sprint(v...))
}

func Debugf(format string, v ...interface{}) {
	L().Debug().Msgf(format, v...)
}

func Info(v ...interface{}) {
	L().Info().Msg(fmt.Sprint(v...))
}

func Infof(format string, v ...interface{}) {
	L().Info().Msgf(format, v...)
}

func Warn(v ...interface{}) {
	L().Warn().Msg(fmt.Sprint(v...))
}

func Warnf(format string, v ...interface{}) {
	L().Warn().Msgf(format, v...)
}

func Error(v ...interface{}) {
	L().Error().Msg(fmt.Sprint(v...))
}

func Errorf(format string, v ...interface{}) {
	L().Error().Msgf(format, v...)
}

// Fatal 输出致命错误日志并退出程序
func Fatal(v ...interface{}) {
	L().Fatal().Msg(fmt.Sprint(v...))
}

func Fatalf(format string, v ...interface{}) {
	L().Fatal().Msgf(format, v...)
}
