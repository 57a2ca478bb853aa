package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case TRACE:
		return logrus.TraceLevel
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel разбирает уровень из строки (trace, debug, info, warn, error)
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TRACE, nil
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("неизвестный уровень логирования: %q", s)
}

// Logger представляет логгер компонента.
// Консольный вывод и файл пишутся разными экземплярами logrus,
// чтобы у них могли быть разные минимальные уровни.
type Logger struct {
	component     string
	consoleLogger *logrus.Logger
	fileLogger    *logrus.Logger
	file          *os.File

	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// Глобальный экземпляр логгера
var defaultLogger = newConsoleLogger("default", os.Stderr)

func newConsoleLogger(component string, out io.Writer) *Logger {
	console := logrus.New()
	console.SetOutput(out)
	console.SetLevel(logrus.TraceLevel)
	console.SetFormatter(formatterFromEnv())

	level := INFO
	if envLevel, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if parsed, err := ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}

	return &Logger{
		component:       component,
		consoleLogger:   console,
		minConsoleLevel: level,
		minFileLevel:    TRACE,
	}
}

// formatterFromEnv выбирает форматтер по LOG_FORMAT: "json" для продакшена, иначе текст
func formatterFromEnv() logrus.Formatter {
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{
		FullTimestamp: true,
	}
}

// NewLogger создаёт логгер компонента с файлом logs/<component>_<timestamp>.log
func NewLogger(component string) (*Logger, error) {
	if err := os.MkdirAll("logs", 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории logs: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join("logs", fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	logger := newConsoleLogger(component, os.Stdout)

	fileLogger := logrus.New()
	fileLogger.SetOutput(file)
	fileLogger.SetLevel(logrus.TraceLevel)
	fileLogger.SetFormatter(&logrus.JSONFormatter{})

	logger.fileLogger = fileLogger
	logger.file = file
	return logger, nil
}

// NewWriterLogger создаёт логгер без файла, пишущий в out (удобно для тестов)
func NewWriterLogger(component string, out io.Writer, level LogLevel) *Logger {
	logger := newConsoleLogger(component, out)
	logger.minConsoleLevel = level
	return logger
}

// InitDefaultLogger инициализирует глобальный логгер сервера
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}
	defaultLogger = logger
	return nil
}

// CloseDefaultLogger закрывает файл глобального логгера
func CloseDefaultLogger() {
	if defaultLogger != nil {
		_ = defaultLogger.Close()
	}
}

// Default возвращает глобальный логгер
func Default() *Logger {
	return defaultLogger
}

// Close закрывает файл логгера, если он есть
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

// Component возвращает имя компонента
func (l *Logger) Component() string {
	return l.component
}

// Entry используется для структурированных логов с полями
type Entry struct {
	logger *Logger
	fields logrus.Fields
}

// WithFields добавляет структурированные поля к записи
func (l *Logger) WithFields(fields map[string]interface{}) *Entry {
	f := make(logrus.Fields, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	return &Entry{logger: l, fields: f}
}

// WithFields добавляет поля к уже существующей записи
func (e *Entry) WithFields(fields map[string]interface{}) *Entry {
	f := make(logrus.Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		f[k] = v
	}
	for k, v := range fields {
		f[k] = v
	}
	return &Entry{logger: e.logger, fields: f}
}

func (e *Entry) Trace(format string, args ...interface{}) { e.logger.log(TRACE, e.fields, format, args...) }
func (e *Entry) Debug(format string, args ...interface{}) { e.logger.log(DEBUG, e.fields, format, args...) }
func (e *Entry) Info(format string, args ...interface{})  { e.logger.log(INFO, e.fields, format, args...) }
func (e *Entry) Warn(format string, args ...interface{})  { e.logger.log(WARN, e.fields, format, args...) }
func (e *Entry) Error(format string, args ...interface{}) { e.logger.log(ERROR, e.fields, format, args...) }

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, nil, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, nil, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, nil, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, nil, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, nil, format, args...) }

// log внутренняя функция для логирования
func (l *Logger) log(level LogLevel, fields logrus.Fields, format string, args ...interface{}) {
	if l == nil {
		return
	}
	message := fmt.Sprintf(format, args...)

	merged := make(logrus.Fields, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["component"] = l.component
	fields = merged

	// В файл пишем всё, начиная с minFileLevel
	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.WithFields(fields).Log(level.logrus(), message)
	}

	if l.consoleLogger != nil && level >= l.minConsoleLevel {
		l.consoleLogger.WithFields(fields).Log(level.logrus(), message)
	}
}

// Пакетные функции пишут в глобальный логгер

func Trace(format string, args ...interface{}) { defaultLogger.log(TRACE, nil, format, args...) }
func Debug(format string, args ...interface{}) { defaultLogger.log(DEBUG, nil, format, args...) }
func Info(format string, args ...interface{})  { defaultLogger.log(INFO, nil, format, args...) }
func Warn(format string, args ...interface{})  { defaultLogger.log(WARN, nil, format, args...) }
func Error(format string, args ...interface{}) { defaultLogger.log(ERROR, nil, format, args...) }
