package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultLogFileMaxBytes = 5 * 1024 * 1024

// fileSink appends events as JSON lines, rotating to a new numbered part
// once the current file would exceed maxBytes.
type fileSink struct {
	mu         sync.Mutex
	dir        string
	sessionTag string
	maxBytes   int64
	part       int
	closed     bool
	out        sinkFile
}

// sinkFile pairs the currently open part with the byte count used for
// rotation decisions.
type sinkFile struct {
	handle *os.File
	size   int64
}

func (f *sinkFile) write(line []byte) error {
	n, err := f.handle.Write(line)
	f.size += int64(n)
	return err
}

func (f *sinkFile) wouldExceed(limit int64, add int) bool {
	return limit > 0 && f.size > 0 && f.size+int64(add) > limit
}

func (f *sinkFile) discard() {
	if f.handle != nil {
		_ = f.handle.Close()
	}
	*f = sinkFile{}
}

type jsonLogLine struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func DefaultLogDirPath() (string, error) {
	root, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "unpod", "notifier", "logs"), nil
}

func resolveLogDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return DefaultLogDirPath()
	}
	return dir, nil
}

func newFileSink(dir string, maxBytes int64) (*fileSink, error) {
	resolved, err := resolveLogDir(dir)
	if err != nil {
		return nil, err
	}
	if maxBytes <= 0 {
		maxBytes = defaultLogFileMaxBytes
	}
	sink := &fileSink{
		dir:        resolved,
		sessionTag: time.Now().UTC().Format("20060102-150405"),
		maxBytes:   maxBytes,
	}
	if err := sink.rotateLocked(); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *fileSink) WriteEvent(event Event) error {
	if s == nil {
		return nil
	}
	line, err := encodeLogLine(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	// A failed rotation leaves no open part behind; retry it here so one
	// transient filesystem error does not end persistence for the session.
	if s.out.handle == nil {
		if err := s.rotateLocked(); err != nil {
			return err
		}
	}
	if s.out.wouldExceed(s.maxBytes, len(line)) {
		if err := s.rotateLocked(); err != nil {
			return err
		}
	}
	return s.out.write(line)
}

func (s *fileSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.out.handle == nil {
		return nil
	}
	err := s.out.handle.Close()
	s.out = sinkFile{}
	return err
}

func (s *fileSink) rotateLocked() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	s.out.discard()
	s.part++
	name := fmt.Sprintf("notifier-%s-%03d.jsonl", s.sessionTag, s.part)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	s.out = sinkFile{handle: f, size: info.Size()}
	return nil
}

func encodeLogLine(event Event) ([]byte, error) {
	payload, err := json.Marshal(jsonLogLine{
		Time:    event.Time.UTC().Format(time.RFC3339Nano),
		Level:   strings.ToUpper(event.Level.String()),
		Message: event.Message,
		Fields:  normalizedFields(event.Fields),
	})
	if err != nil {
		return nil, err
	}
	return append(payload, '\n'), nil
}

func normalizedFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = normalizeFieldValue(value)
	}
	return out
}

func normalizeFieldValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case error:
		return v.Error()
	case slog.Level:
		// Levels marshal fine as-is; flattening them would lose the
		// numeric offsets between named levels.
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return value
	}
}
