package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"JARVIS_CONFIG", "GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY",
		"JARVIS_GEMINI_API_KEY", "JARVIS_GEMINI_MODEL", "JARVIS_AUDIO_BACKEND",
		"JARVIS_AUDIO_FRAME_SIZE", "JARVIS_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	want := Default()
	if cfg.Gemini.Model != want.Gemini.Model || cfg.Gemini.Voice != "Kore" {
		t.Fatalf("unexpected gemini defaults: %+v", cfg.Gemini)
	}
	if cfg.Audio != want.Audio {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Session.StopTimeout() != 4*time.Second {
		t.Fatalf("unexpected stop timeout %v", cfg.Session.StopTimeout())
	}
	if cfg.File != "" {
		t.Fatalf("expected no config file, got %q", cfg.File)
	}
}

func TestLoadRespectsEnvOverridesAndKeyFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("JARVIS_GEMINI_MODEL", "gemini-test")
	t.Setenv("JARVIS_AUDIO_FRAME_SIZE", "2048")
	t.Setenv("JARVIS_LOG_FORMAT", "JSON")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Gemini.Model != "gemini-test" {
		t.Fatalf("expected env model, got %q", cfg.Gemini.Model)
	}
	if cfg.Audio.OutputSampleRate != 24000 || cfg.Audio.FrameSize != 2048 {
		t.Fatalf("expected env frame size, got %d", cfg.Audio.FrameSize)
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Log.Format)
	}
	if cfg.Gemini.APIKey != "google-key" {
		t.Fatalf("expected GOOGLE_API_KEY fallback, got %q", cfg.Gemini.APIKey)
	}

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Gemini.APIKey != "gemini-key" {
		t.Fatalf("expected GEMINI_API_KEY priority, got %q", cfg.Gemini.APIKey)
	}
}

func TestLoadReadsDefaultLocation(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".config", "jarvis", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	body := "[gemini]\nvoice = \"Puck\"\n\n[audio]\nbackend = \"ffmpeg\"\ninput_device = \"hw:1\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Gemini.Voice != "Puck" || cfg.Audio.Backend != "ffmpeg" || cfg.Audio.InputDevice != "hw:1" {
		t.Fatalf("file values not applied: %+v %+v", cfg.Gemini, cfg.Audio)
	}
	if cfg.File != path {
		t.Fatalf("expected file %q, got %q", path, cfg.File)
	}
	if cfg.Audio.OutputSampleRate != 24000 {
		t.Fatalf("expected default output rate to survive, got %d", cfg.Audio.OutputSampleRate)
	}

	t.Setenv("JARVIS_AUDIO_BACKEND", "malgo")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio.Backend != "malgo" {
		t.Fatalf("expected env to beat file, got %q", cfg.Audio.Backend)
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	home := isolate(t)

	if _, err := Load(filepath.Join(home, "missing.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoadNormalizesInvalidValues(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.toml")
	body := strings.Join([]string{
		"[audio]",
		"backend = \"pipewire\"",
		"output_sample_rate = 0",
		"frame_size = 12",
		"output_buffer_ms = -5",
		"[session]",
		"stop_timeout_ms = 0",
		"[log]",
		"format = \"xml\"",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	d := Default()
	if cfg.Audio.Backend != d.Audio.Backend {
		t.Fatalf("expected backend fallback, got %q", cfg.Audio.Backend)
	}
	if cfg.Audio.OutputSampleRate != 24000 || cfg.Audio.FrameSize != 4096 || cfg.Audio.OutputBuffer() != 100*time.Millisecond {
		t.Fatalf("audio not normalized: %+v", cfg.Audio)
	}
	if cfg.Session.StopTimeoutMS != d.Session.StopTimeoutMS {
		t.Fatalf("stop timeout not normalized: %d", cfg.Session.StopTimeoutMS)
	}
	if cfg.Log.Format != "text" {
		t.Fatalf("expected text log format, got %q", cfg.Log.Format)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "nested", "config.toml")

	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("write default failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
	if err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite without force")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Fatalf("forced write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio != Default().Audio || cfg.Gemini.Model != Default().Gemini.Model {
		t.Fatalf("round trip mismatch: %+v", cfg)
	}
}

func TestRedactedMasksKey(t *testing.T) {
	cfg := Default()
	cfg.Gemini.APIKey = "abcdefgh1234"

	red := cfg.Redacted()
	if red.Gemini.APIKey != "********1234" {
		t.Fatalf("unexpected redaction %q", red.Gemini.APIKey)
	}
	if cfg.Gemini.APIKey != "abcdefgh1234" {
		t.Fatalf("redaction mutated original")
	}

	cfg.Gemini.APIKey = "abc"
	if got := cfg.Redacted().Gemini.APIKey; got != "****" {
		t.Fatalf("unexpected short redaction %q", got)
	}
}
