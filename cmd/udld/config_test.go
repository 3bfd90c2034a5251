package main

import (
	"testing"
)

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := &appConfig{mode: "bogus", logFormat: "text", logLevel: "info"}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestValidateRequiresTracePath(t *testing.T) {
	cfg := &appConfig{mode: "trace", logFormat: "text", logLevel: "info", traceFormat: "ser2net"}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for missing -trace path")
	}
}

func TestValidateAcceptsServerMode(t *testing.T) {
	cfg := &appConfig{mode: "server", logFormat: "json", logLevel: "debug"}
	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyEnvOverridesSkipsExplicitFlags(t *testing.T) {
	t.Setenv("UDLD_BANNER", "from-env")
	cfg := &appConfig{banner: "from-flag"}
	if err := applyEnvOverrides(cfg, map[string]struct{}{"banner": {}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.banner != "from-flag" {
		t.Fatalf("expected flag value to win, got %q", cfg.banner)
	}
}

func TestApplyEnvOverridesAppliesWhenFlagUnset(t *testing.T) {
	t.Setenv("UDLD_BANNER", "from-env")
	cfg := &appConfig{banner: "default"}
	if err := applyEnvOverrides(cfg, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.banner != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.banner)
	}
}

func TestApplyEnvOverridesRejectsBadTracePort(t *testing.T) {
	t.Setenv("UDLD_TRACE_PORT", "not-a-number")
	cfg := &appConfig{tracePort: 10001}
	if err := applyEnvOverrides(cfg, map[string]struct{}{}); err == nil {
		t.Fatal("expected error for invalid UDLD_TRACE_PORT")
	}
}
