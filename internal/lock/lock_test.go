package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestMutexMap_SeparateKeys(t *testing.T) {
	m := NewMutexMap()

	// Holding one owner's lock must not block another owner.
	m.Lock("user_1")
	done := make(chan struct{})
	go func() {
		m.Lock("user_2")
		m.Unlock("user_2")
		close(done)
	}()
	<-done
	m.Unlock("user_1")
}

func TestMutexMap_SameKeySerializes(t *testing.T) {
	m := NewMutexMap()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock("user_1")
			counter++
			m.Unlock("user_1")
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter: got %d, want 50", counter)
	}
}

func TestFileLock_WritesPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")
	fl := NewFileLock(path)

	if err := fl.TryLock(); err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	defer fl.Unlock()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		t.Fatalf("lock file does not contain a PID: %q", content)
	}
	if pid != os.Getpid() {
		t.Errorf("pid: got %d, want %d", pid, os.Getpid())
	}
}

func TestFileLock_SecondAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")

	first := NewFileLock(path)
	if err := first.TryLock(); err != nil {
		t.Fatalf("first TryLock failed: %v", err)
	}
	defer first.Unlock()

	second := NewFileLock(path)
	if err := second.TryLock(); err == nil {
		second.Unlock()
		t.Fatalf("second TryLock should have failed while first holds the lock")
	}
}

func TestFileLock_UnlockRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")
	fl := NewFileLock(path)

	if err := fl.TryLock(); err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed after Unlock")
	}
}
