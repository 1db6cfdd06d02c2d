package app

import (
	"testing"
	"time"
)

func TestValidateFillsDefaults(t *testing.T) {
	cfg := Config{DataDir: t.TempDir()}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.ExecTimeout != 5*time.Second || cfg.BootstrapTimeout != 30*time.Second {
		t.Fatalf("unexpected timeouts %+v", cfg)
	}
	if cfg.UI.StyleVariant != "modern_arcade" || cfg.Gameplay.AutosaveDebounceMS != 800 {
		t.Fatalf("unexpected ui defaults %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.UI.StyleVariant = "neon"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid style error")
	}

	cfg = DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.ExecTimeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative timeout error")
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("PYDOJO_DATA_DIR", "/tmp/pydojo-test")
	t.Setenv("PYDOJO_EXEC_TIMEOUT", "750ms")
	t.Setenv("PYDOJO_STYLE", "retro_terminal")
	t.Setenv("GEMINI_API_KEY", "k-123")

	cfg, err := LoadEnv(DefaultConfig())
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.DataDir != "/tmp/pydojo-test" || cfg.ExecTimeout != 750*time.Millisecond {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.UI.StyleVariant != "retro_terminal" || cfg.GeminiAPIKey != "k-123" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Gameplay.AutosaveDebounceMS != 800 {
		t.Fatalf("unset variables must keep defaults, got %d", cfg.Gameplay.AutosaveDebounceMS)
	}
}
