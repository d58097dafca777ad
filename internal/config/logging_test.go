package config

import "testing"

func TestLoadLogDefaults(t *testing.T) {
	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "info" || cfg.Service != "table-keeper" || cfg.MaxMB != 10 {
		t.Fatalf("unexpected log defaults: %+v", cfg)
	}
}

func TestLoadLogParse(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/tmp/orchestrator.log")
	t.Setenv("LOG_SERVICE", "reconciler")

	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "debug" || cfg.File != "/tmp/orchestrator.log" || cfg.Service != "reconciler" {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
}
