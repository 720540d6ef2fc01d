package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Physics.Repulsion != 5000 {
		t.Errorf("expected repulsion 5000, got %v", cfg.Physics.Repulsion)
	}
	if cfg.Physics.Damping != 0.85 {
		t.Errorf("expected damping 0.85, got %v", cfg.Physics.Damping)
	}
	if cfg.Physics.MaxTicks != 2000 {
		t.Errorf("expected max ticks 2000, got %d", cfg.Physics.MaxTicks)
	}
	if cfg.Viewport.MinZoom != 0.1 || cfg.Viewport.MaxZoom != 5 {
		t.Errorf("unexpected zoom bounds %v..%v", cfg.Viewport.MinZoom, cfg.Viewport.MaxZoom)
	}
	if !cfg.Render.ShowLabels {
		t.Error("default labels should be on")
	}
	if cfg.Render.ShowEdgeLabels {
		t.Error("default edge labels should be off")
	}
	if cfg.Server.FPS != 60 {
		t.Errorf("expected fps 60, got %d", cfg.Server.FPS)
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg")
	dir := ConfigDir()
	if dir != "/tmp/test-xdg/garden" {
		t.Errorf("expected /tmp/test-xdg/garden, got %q", dir)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	dir = ConfigDir()
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".config", "garden")
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Physics.Repulsion = 1234
	cfg.Server.Addr = ":9999"
	cfg.Render.Colors = map[string]string{"person": "#000000"}

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := Load()
	if loaded.Physics.Repulsion != 1234 {
		t.Errorf("expected repulsion 1234, got %v", loaded.Physics.Repulsion)
	}
	if loaded.Server.Addr != ":9999" {
		t.Errorf("expected addr :9999, got %q", loaded.Server.Addr)
	}
	if loaded.Render.Color("person") != "#000000" {
		t.Errorf("colour override lost: %q", loaded.Render.Color("person"))
	}
}

func TestLoadFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[physics]\nrepulsion = 100\ndamping = 1.5\n\n[viewport]\nwidth = -1\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Physics.Repulsion != 100 {
		t.Errorf("expected repulsion 100, got %v", cfg.Physics.Repulsion)
	}
	if cfg.Physics.Attraction != 0.05 {
		t.Errorf("unset keys keep defaults, got attraction %v", cfg.Physics.Attraction)
	}
	if cfg.Physics.Damping != 0.85 {
		t.Errorf("out of range damping should reset, got %v", cfg.Physics.Damping)
	}
	if cfg.Viewport.Width != 800 {
		t.Errorf("bad width should reset, got %v", cfg.Viewport.Width)
	}
}

func TestLoadFileErrors(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil || cfg == nil {
		t.Fatalf("missing file should give defaults, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte("[physics\n"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if err := EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	path := filepath.Join(tmpDir, "garden", "config.toml")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}

	if err := EnsureExists(); err != nil {
		t.Fatalf("EnsureExists second call failed: %v", err)
	}
}
