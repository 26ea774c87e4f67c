package setup

import (
	"os"
	"path/filepath"
	"testing"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/hksdtp/salespulse/internal/model"
)

func TestRun_CreatesStructure(t *testing.T) {
	projectDir := t.TempDir()

	if err := Run(projectDir, "retail-pulse"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	base := filepath.Join(projectDir, Dir)
	for _, d := range []string{
		"data/plans", "data/tasks", "data/users",
		"locks", "logs", "logs/audit", "quarantine",
	} {
		info, err := os.Stat(filepath.Join(base, d))
		if err != nil || !info.IsDir() {
			t.Errorf("missing directory %s (err=%v)", d, err)
		}
	}

	content, err := os.ReadFile(filepath.Join(base, "config.yaml"))
	if err != nil {
		t.Fatalf("read config.yaml: %v", err)
	}
	var cfg model.Config
	if err := yamlv3.Unmarshal(content, &cfg); err != nil {
		t.Fatalf("parse config.yaml: %v", err)
	}
	if cfg.Project.Name != "retail-pulse" {
		t.Errorf("project name: got %q, want %q", cfg.Project.Name, "retail-pulse")
	}
	if cfg.Sync.IntervalSec != 60 {
		t.Errorf("sync interval: got %d, want 60", cfg.Sync.IntervalSec)
	}
}

func TestRun_DefaultsProjectName(t *testing.T) {
	projectDir := t.TempDir()

	if err := Run(projectDir, ""); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(projectDir, Dir, "config.yaml"))
	if err != nil {
		t.Fatalf("read config.yaml: %v", err)
	}
	var cfg model.Config
	if err := yamlv3.Unmarshal(content, &cfg); err != nil {
		t.Fatalf("parse config.yaml: %v", err)
	}
	if cfg.Project.Name != filepath.Base(projectDir) {
		t.Errorf("project name: got %q, want %q", cfg.Project.Name, filepath.Base(projectDir))
	}
}

func TestRun_RefusesExisting(t *testing.T) {
	projectDir := t.TempDir()

	if err := Run(projectDir, ""); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if err := Run(projectDir, ""); err == nil {
		t.Errorf("second Run should fail on existing %s", Dir)
	}
}
