// Package logger is the JSON line logger used by the storehub services.
// Each entry is one JSON object: time, level, msg, optional caller, and the
// logger's fields flattened next to them.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError

	levelOff
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "OFF"
	}
}

// ParseLevel parses LOG_LEVEL values. Unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field is a key-value pair attached to an entry.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }

// Err stores the error text under "error". A nil error is omitted.
func Err(err error) Field {
	if err == nil {
		return Field{}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain fields.
func Component(name string) Field       { return String("component", name) }
func ItemID(id string) Field            { return String("item_id", id) }
func StudentNumber(number string) Field { return String("student_number", number) }
func Seed(seed int32) Field             { return Int("seed", int(seed)) }
func Path(path string) Field            { return String("path", path) }
func Digest(digest string) Field        { return String("digest", digest) }
func Count(n int) Field                 { return Int("count", n) }

// reserved keys are never overwritten by fields.
var reserved = map[string]bool{"time": true, "level": true, "msg": true, "caller": true}

// sink is shared by a logger and every logger derived from it with With,
// so entries from different components never interleave.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(line)
}

// Logger writes JSON lines. It is safe for concurrent use.
type Logger struct {
	out    *sink
	level  Level
	caller bool
	fields []Field
	now    func() time.Time
}

// Options configures the logger.
type Options struct {
	Output    io.Writer // default os.Stderr
	Level     Level
	AddCaller bool
}

// New creates a Logger.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	return &Logger{
		out:    &sink{w: opts.Output},
		level:  opts.Level,
		caller: opts.AddCaller,
		now:    time.Now,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(Options{Output: io.Discard, Level: levelOff})
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

// With returns a child logger that adds fields to every entry.
// Later fields with the same key win.
func (l *Logger) With(fields ...Field) *Logger {
	child := *l
	child.fields = append(append(make([]Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	return &child
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.write(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.write(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.write(LevelError, msg, fields) }

func (l *Logger) write(level Level, msg string, fields []Field) {
	if !l.Enabled(level) {
		return
	}

	entry := make(map[string]any, 4+len(l.fields)+len(fields))
	for _, group := range [][]Field{l.fields, fields} {
		for _, f := range group {
			if f.Key == "" || reserved[f.Key] {
				continue
			}
			entry[f.Key] = f.Value
		}
	}
	entry["time"] = l.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	if l.caller {
		// write <- Info/Warn/... <- caller
		if _, file, line, ok := runtime.Caller(2); ok {
			if idx := strings.LastIndex(file, "/"); idx >= 0 {
				file = file[idx+1:]
			}
			entry["caller"] = fmt.Sprintf("%s:%d", file, line)
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"time":%q,"level":%q,"msg":%q,"error":%q}`,
			entry["time"], level.String(), msg, "unencodable fields: "+err.Error()))
	}
	l.out.write(append(data, '\n'))
}
