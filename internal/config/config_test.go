package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NEXUS_CONFIG", "")
	t.Setenv("NEXUS_DATA_DIR", dir)
	t.Setenv("NEXUS_WORKSPACE_DIR", filepath.Join(dir, "workspace"))
	t.Setenv("NEXUS_MEMORY_DIR", filepath.Join(dir, "memories"))
	t.Setenv("NEXUS_SKILLS_DIR", filepath.Join(dir, "skills"))
	t.Setenv("NEXUS_DB_PATH", filepath.Join(dir, "nexus.db"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxSteps != 8 {
		t.Errorf("MaxSteps = %d, want 8", cfg.MaxSteps)
	}
	if cfg.SessionWindowTurns != 20 {
		t.Errorf("SessionWindowTurns = %d, want 20", cfg.SessionWindowTurns)
	}
	if cfg.ConfirmationTTL.Std() != 10*time.Minute {
		t.Errorf("ConfirmationTTL = %v, want 10m", cfg.ConfirmationTTL.Std())
	}
	if cfg.Location == nil {
		t.Fatal("Location not populated")
	}
	for _, d := range []string{cfg.WorkspaceDir, cfg.MemoryDir, cfg.SkillsDir} {
		if _, err := os.Stat(d); err != nil {
			t.Errorf("directory %s not created: %v", d, err)
		}
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "config.yaml")
	content := `
data_dir: ` + dir + `
workspace_dir: ` + filepath.Join(dir, "ws") + `
memory_dir: ` + filepath.Join(dir, "mem") + `
skills_dir: ` + filepath.Join(dir, "sk") + `
db_path: ` + filepath.Join(dir, "db.sqlite") + `
primary_model: file-model
max_steps: 4
request_timeout: 30s
`
	if err := os.WriteFile(yml, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEXUS_CONFIG", yml)
	t.Setenv("NEXUS_PRIMARY_MODEL", "env-model")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PrimaryModel != "env-model" {
		t.Errorf("PrimaryModel = %q, env should win over file", cfg.PrimaryModel)
	}
	if cfg.MaxSteps != 4 {
		t.Errorf("MaxSteps = %d, want 4 from file", cfg.MaxSteps)
	}
	if cfg.RequestTimeout.Std() != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout.Std())
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NEXUS_CONFIG", "")
	t.Setenv("NEXUS_DATA_DIR", dir)
	t.Setenv("NEXUS_TIMEZONE", "Nowhere/Invalid")
	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for invalid timezone")
	}
}

func TestFinalize_ObservationFloor(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.ObservationMaxChars = 50
	if err := cfg.finalize(); err != nil {
		t.Fatalf("finalize() error = %v", err)
	}
	if cfg.ObservationMaxChars != 200 {
		t.Errorf("ObservationMaxChars = %d, want floor 200", cfg.ObservationMaxChars)
	}
}
