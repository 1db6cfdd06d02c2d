package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"pydojo/internal/advice"
	"pydojo/internal/grading"
	"pydojo/internal/sandbox"
)

// Config controls runtime behavior for the app and the play view.
type Config struct {
	DataDir  string `env:"PYDOJO_DATA_DIR"`
	LogPath  string `env:"PYDOJO_LOG"`
	LogLevel string `env:"PYDOJO_LOG_LEVEL"`
	PacksDir string `env:"PYDOJO_PACKS_DIR"`

	// IndexURL is where the interpreter prelude is fetched from. Empty uses
	// the copy compiled into the binary.
	IndexURL         string        `env:"PYDOJO_INDEX_URL"`
	ExecTimeout      time.Duration `env:"PYDOJO_EXEC_TIMEOUT"`
	BootstrapTimeout time.Duration `env:"PYDOJO_BOOTSTRAP_TIMEOUT"`
	MaxSteps         uint64        `env:"PYDOJO_MAX_STEPS"`

	AdviceTimeout time.Duration `env:"PYDOJO_ADVICE_TIMEOUT"`
	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`
	GeminiModel   string        `env:"PYDOJO_GEMINI_MODEL"`
	GeminiURL     string        `env:"PYDOJO_GEMINI_URL"`

	LearnerName string `env:"PYDOJO_NAME"`

	// Stdin answers input() calls. Nil makes input() return "".
	Stdin sandbox.StdinFunc

	Gameplay GameplayConfig
	UI       UIConfig
}

type GameplayConfig struct {
	AutosaveDebounceMS int `env:"PYDOJO_AUTOSAVE_DEBOUNCE_MS"`
}

type UIConfig struct {
	StyleVariant string `env:"PYDOJO_STYLE"`
	ASCIIOnly    bool   `env:"PYDOJO_ASCII"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:         "info",
		ExecTimeout:      grading.DefaultExecTimeout,
		BootstrapTimeout: sandbox.DefaultBootstrapTimeout,
		AdviceTimeout:    advice.DefaultTimeout,
		Gameplay: GameplayConfig{
			AutosaveDebounceMS: 800,
		},
		UI: UIConfig{
			StyleVariant: "modern_arcade",
		},
	}
}

// LoadEnv overlays environment variables on top of cfg.
func LoadEnv(cfg Config) (Config, error) {
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.ExecTimeout < 0 || c.BootstrapTimeout < 0 || c.AdviceTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.ExecTimeout == 0 {
		c.ExecTimeout = grading.DefaultExecTimeout
	}
	if c.BootstrapTimeout == 0 {
		c.BootstrapTimeout = sandbox.DefaultBootstrapTimeout
	}
	if c.AdviceTimeout == 0 {
		c.AdviceTimeout = advice.DefaultTimeout
	}
	if c.Gameplay.AutosaveDebounceMS <= 0 {
		c.Gameplay.AutosaveDebounceMS = 800
	}
	switch c.UI.StyleVariant {
	case "", "modern_arcade", "cozy_clean", "retro_terminal":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "modern_arcade"
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "pydojo")
	}

	return nil
}
