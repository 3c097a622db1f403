package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Logger fans events out to stderr, an optional JSONL file sink, and any
// registered subscribers (UI log panes).
type Logger struct {
	debugEnabled  atomic.Bool
	stderrEnabled atomic.Bool
	pretty        bool

	mu          sync.RWMutex
	sink        *fileSink
	nextSubID   int
	subscribers map[int]func(Event)
}

type Event struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Fields  map[string]any
}

func New(debug bool) *Logger {
	l := &Logger{
		pretty:      stderrWantsColor(),
		subscribers: map[int]func(Event){},
	}
	l.debugEnabled.Store(debug)
	l.stderrEnabled.Store(true)
	return l
}

// stderrWantsColor decides between the ANSI and plain stderr formats,
// honoring NO_COLOR and dumb terminals.
func stderrWantsColor() bool {
	term := strings.TrimSpace(os.Getenv("TERM"))
	if term == "" || term == "dumb" {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

func Field(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

func (l *Logger) SetDebugEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.debugEnabled.Store(enabled)
}

func (l *Logger) SetTerminalOutputEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.stderrEnabled.Store(enabled)
}

// swapSink installs next as the file sink and hands back the previous one
// so the caller can close it outside the lock.
func (l *Logger) swapSink(next *fileSink) *fileSink {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.sink
	l.sink = next
	return prev
}

// EnableFilePersistence starts (or restarts) the JSONL file sink. A blank
// dir falls back to the notifier cache directory.
func (l *Logger) EnableFilePersistence(dir string, maxBytes int64) error {
	if l == nil {
		return nil
	}
	sink, err := newFileSink(dir, maxBytes)
	if err != nil {
		return err
	}
	if prev := l.swapSink(sink); prev != nil {
		_ = prev.Close()
	}
	return nil
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	if prev := l.swapSink(nil); prev != nil {
		return prev.Close()
	}
	return nil
}

func (l *Logger) Debug(msg string, fields ...slog.Attr) { l.emit(slog.LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...slog.Attr)  { l.emit(slog.LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...slog.Attr)  { l.emit(slog.LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...slog.Attr) { l.emit(slog.LevelError, msg, fields) }

func (l *Logger) Debugf(format string, args ...any) {
	l.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// Subscribe registers a callback for visible events and returns its
// unsubscribe func.
func (l *Logger) Subscribe(fn func(Event)) func() {
	if l == nil {
		panic("logging.Logger.Subscribe: logger must not be nil")
	}
	if fn == nil {
		panic("logging.Logger.Subscribe: callback must not be nil")
	}
	l.mu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.subscribers[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subscribers, id)
	}
}

// emit is the common gateway behind the leveled methods. Suppressed debug
// events still reach the file sink; visibility only gates stderr and
// subscribers.
func (l *Logger) emit(level slog.Level, msg string, attrs []slog.Attr) {
	if l == nil {
		return
	}
	event := Event{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Fields:  attrsToMap(attrs),
	}
	visible := level > slog.LevelDebug || l.debugEnabled.Load()

	sink, callbacks := l.snapshotOutputs(visible)
	if sink != nil {
		_ = sink.WriteEvent(event)
	}
	if !visible {
		return
	}
	l.writeStderr(event)
	for _, cb := range callbacks {
		cb(event)
	}
}

// snapshotOutputs copies the current sink and subscriber set under the read
// lock so callbacks run without holding it.
func (l *Logger) snapshotOutputs(includeSubscribers bool) (*fileSink, []func(Event)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var callbacks []func(Event)
	if includeSubscribers && len(l.subscribers) > 0 {
		callbacks = make([]func(Event), 0, len(l.subscribers))
		for _, cb := range l.subscribers {
			callbacks = append(callbacks, cb)
		}
	}
	return l.sink, callbacks
}

func (l *Logger) writeStderr(event Event) {
	if !l.stderrEnabled.Load() {
		return
	}
	format := FormatEventLine
	if l.pretty {
		format = FormatEventANSI
	}
	_, _ = os.Stderr.WriteString(format(event))
}
