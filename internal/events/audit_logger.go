package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// DefaultMaxLogSize is the rotation threshold (10MB).
	DefaultMaxLogSize = 10 * 1024 * 1024
	logFileExtension  = ".jsonl"
	archiveDir        = "archive"
)

// LogEntry is a single audit record of a published signal.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Topic     string         `json:"topic"`
	OwnerID   string         `json:"owner_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// AuditLogger appends published signals to a JSONL file with size-based
// rotation into an archive directory. It gives operators a durable trail of
// every refresh the UI was told about.
type AuditLogger struct {
	mu          sync.Mutex
	file        *os.File
	currentSize int64
	maxSize     int64
	logPath     string
	rotations   int
}

func NewAuditLogger(logPath string, maxSize int64) (*AuditLogger, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxLogSize
	}

	l := &AuditLogger{
		logPath: logPath,
		maxSize: maxSize,
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	if err := l.openLogFile(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *AuditLogger) openLogFile() error {
	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat audit log: %w", err)
	}

	l.file = file
	l.currentSize = stat.Size()
	return nil
}

// Record logs a published event. Wire it to a bus with
// bus.Subscribe(topic, logger.Record).
func (l *AuditLogger) Record(e Event) {
	entry := LogEntry{
		Timestamp: e.Timestamp,
		Topic:     string(e.Topic),
		Payload:   e.Payload,
	}
	if owner, ok := e.Payload["owner_id"].(string); ok {
		entry.OwnerID = owner
	}
	_ = l.WriteEntry(&entry)
}

func (l *AuditLogger) WriteEntry(entry *LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	data = append(data, '\n')

	if l.currentSize+int64(len(data)) > l.maxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotate audit log: %w", err)
		}
	}

	n, err := l.file.Write(data)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}

	l.currentSize += int64(n)
	return nil
}

func (l *AuditLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close current audit log: %w", err)
	}

	dir := filepath.Join(filepath.Dir(l.logPath), archiveDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	l.rotations++
	baseName := filepath.Base(l.logPath)
	archiveName := fmt.Sprintf("%s.%s.%d%s",
		baseName[:len(baseName)-len(logFileExtension)],
		timestamp,
		l.rotations,
		logFileExtension)

	if err := os.Rename(l.logPath, filepath.Join(dir, archiveName)); err != nil {
		return fmt.Errorf("archive audit log: %w", err)
	}

	return l.openLogFile()
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			return err
		}
		return l.file.Close()
	}
	return nil
}
