// Package setup handles salespulse data directory initialization.
package setup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hksdtp/salespulse/internal/model"
	atomicyaml "github.com/hksdtp/salespulse/internal/yaml"
)

// Dir is the conventional data directory name, created inside the project
// directory.
const Dir = ".salespulse"

// Run initializes the .salespulse/ directory structure in the given project
// directory. projectName defaults to the directory basename if empty.
func Run(projectDir, projectName string) error {
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return fmt.Errorf("resolve project dir: %w", err)
	}

	base := filepath.Join(absDir, Dir)

	if _, err := os.Stat(base); err == nil {
		return fmt.Errorf("%s already exists", base)
	}

	dirs := []string{
		"data/plans",
		"data/tasks",
		"data/users",
		"locks",
		"logs",
		"logs/audit",
		"quarantine",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(base, d), 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", d, err)
		}
	}

	if projectName == "" {
		projectName = filepath.Base(absDir)
	}

	cfg := model.DefaultConfig(projectName)
	if err := atomicyaml.AtomicWrite(filepath.Join(base, "config.yaml"), cfg); err != nil {
		return fmt.Errorf("write config.yaml: %w", err)
	}

	return nil
}
