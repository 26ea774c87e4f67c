package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAuditLogger_RecordsBusEvents(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "refresh.jsonl")
	logger, err := NewAuditLogger(logPath, 0)
	if err != nil {
		t.Fatalf("NewAuditLogger failed: %v", err)
	}
	defer logger.Close()

	bus := NewBus()
	defer bus.Subscribe(TopicTasksRefreshed, logger.Record)()

	bus.Publish(TopicTasksRefreshed, map[string]any{"owner_id": "user_1", "created": 2})

	f, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("open log failed: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatalf("expected one log line")
	}

	var entry LogEntry
	if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal entry failed: %v", err)
	}
	if entry.Topic != string(TopicTasksRefreshed) {
		t.Errorf("topic: got %q, want %q", entry.Topic, TopicTasksRefreshed)
	}
	if entry.OwnerID != "user_1" {
		t.Errorf("owner_id: got %q, want %q", entry.OwnerID, "user_1")
	}
}

func TestAuditLogger_Rotation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "refresh.jsonl")

	// Tiny threshold so the second entry forces rotation.
	logger, err := NewAuditLogger(logPath, 64)
	if err != nil {
		t.Fatalf("NewAuditLogger failed: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 3; i++ {
		entry := &LogEntry{
			Timestamp: time.Now().UTC(),
			Topic:     string(TopicTasksRefreshed),
			OwnerID:   "user_1",
		}
		if err := logger.WriteEntry(entry); err != nil {
			t.Fatalf("WriteEntry %d failed: %v", i, err)
		}
	}

	archives, err := os.ReadDir(filepath.Join(dir, "archive"))
	if err != nil {
		t.Fatalf("ReadDir archive failed: %v", err)
	}
	if len(archives) == 0 {
		t.Errorf("expected at least one archived log file")
	}

	// Current log still exists and is writable.
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("current log missing after rotation: %v", err)
	}
}
