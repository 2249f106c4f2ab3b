// Package config resolves runtime configuration from an optional TOML file,
// a .env file, and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "JARVIS"
	configDirName = "jarvis"
	configName    = "config"
	configType    = "toml"
)

// Config stores runtime configuration.
type Config struct {
	Gemini  GeminiConfig  `toml:"gemini" mapstructure:"gemini"`
	Audio   AudioConfig   `toml:"audio" mapstructure:"audio"`
	Session SessionConfig `toml:"session" mapstructure:"session"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`

	// File is the config file that was read, if any.
	File string `toml:"-" mapstructure:"-"`
}

type GeminiConfig struct {
	APIKey            string `toml:"api_key" mapstructure:"api_key" comment:"Prefer GEMINI_API_KEY in the environment"`
	BaseURL           string `toml:"base_url" mapstructure:"base_url"`
	Model             string `toml:"model" mapstructure:"model"`
	Voice             string `toml:"voice" mapstructure:"voice"`
	SystemInstruction string `toml:"system_instruction" mapstructure:"system_instruction" comment:"Empty uses the built-in persona"`
	Transcription     bool   `toml:"transcription" mapstructure:"transcription"`
}

type AudioConfig struct {
	Backend          string `toml:"backend" mapstructure:"backend" comment:"malgo or ffmpeg"`
	FFmpegCommand    string `toml:"ffmpeg_command" mapstructure:"ffmpeg_command"`
	InputFormat      string `toml:"input_format" mapstructure:"input_format"`
	InputDevice      string `toml:"input_device" mapstructure:"input_device"`
	OutputSampleRate int    `toml:"output_sample_rate" mapstructure:"output_sample_rate"`
	FrameSize        int    `toml:"frame_size" mapstructure:"frame_size"`
	OutputBufferMS   int    `toml:"output_buffer_ms" mapstructure:"output_buffer_ms"`
}

type SessionConfig struct {
	StopTimeoutMS int `toml:"stop_timeout_ms" mapstructure:"stop_timeout_ms"`
}

type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level" comment:"debug, info, warn or error"`
	Format string `toml:"format" mapstructure:"format" comment:"text or json"`
}

type MetricsConfig struct {
	Addr string `toml:"addr" mapstructure:"addr" comment:"Empty disables the metrics endpoint"`
}

func (c AudioConfig) OutputBuffer() time.Duration {
	return time.Duration(c.OutputBufferMS) * time.Millisecond
}

func (c SessionConfig) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMS) * time.Millisecond
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Gemini: GeminiConfig{
			BaseURL:       "https://generativelanguage.googleapis.com",
			Model:         "gemini-2.5-flash-native-audio-preview-12-2025",
			Voice:         "Kore",
			Transcription: true,
		},
		Audio: AudioConfig{
			Backend:          "malgo",
			FFmpegCommand:    "ffmpeg",
			InputFormat:      "pulse",
			InputDevice:      "default",
			OutputSampleRate: 24000,
			FrameSize:        4096,
			OutputBufferMS:   100,
		},
		Session: SessionConfig{StopTimeoutMS: 4000},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultPath is where Load looks for a config file when none is given.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine home directory")
	}
	return filepath.Join(home, ".config", configDirName, configName+"."+configType), nil
}

// Load resolves configuration. An explicit path must exist; otherwise the
// default location is used when present. JARVIS_CONFIG overrides both.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path = firstNonEmpty(os.Getenv(envPrefix+"_CONFIG"), path)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		v.SetConfigName(configName)
		v.AddConfigPath(filepath.Dir(defaultPath))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	cfg.Gemini.APIKey = firstNonEmpty(
		cfg.Gemini.APIKey,
		os.Getenv("GEMINI_API_KEY"),
		os.Getenv("GOOGLE_API_KEY"),
		os.Getenv("API_KEY"),
	)

	normalize(&cfg)
	return cfg, nil
}

// WriteDefault renders the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	payload, err := Default().MarshalTOML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// MarshalTOML renders the configuration as TOML.
func (c Config) MarshalTOML() ([]byte, error) {
	payload, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return payload, nil
}

// Redacted returns a copy that is safe to print.
func (c Config) Redacted() Config {
	if key := c.Gemini.APIKey; key != "" {
		if len(key) > 4 {
			c.Gemini.APIKey = strings.Repeat("*", len(key)-4) + key[len(key)-4:]
		} else {
			c.Gemini.APIKey = "****"
		}
	}
	return c
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("gemini.api_key", d.Gemini.APIKey)
	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.voice", d.Gemini.Voice)
	v.SetDefault("gemini.system_instruction", d.Gemini.SystemInstruction)
	v.SetDefault("gemini.transcription", d.Gemini.Transcription)

	v.SetDefault("audio.backend", d.Audio.Backend)
	v.SetDefault("audio.ffmpeg_command", d.Audio.FFmpegCommand)
	v.SetDefault("audio.input_format", d.Audio.InputFormat)
	v.SetDefault("audio.input_device", d.Audio.InputDevice)
	v.SetDefault("audio.output_sample_rate", d.Audio.OutputSampleRate)
	v.SetDefault("audio.frame_size", d.Audio.FrameSize)
	v.SetDefault("audio.output_buffer_ms", d.Audio.OutputBufferMS)

	v.SetDefault("session.stop_timeout_ms", d.Session.StopTimeoutMS)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

func normalize(cfg *Config) {
	d := Default()

	cfg.Audio.Backend = strings.ToLower(strings.TrimSpace(cfg.Audio.Backend))
	if cfg.Audio.Backend != "malgo" && cfg.Audio.Backend != "ffmpeg" {
		cfg.Audio.Backend = d.Audio.Backend
	}
	if cfg.Audio.OutputSampleRate <= 0 {
		cfg.Audio.OutputSampleRate = d.Audio.OutputSampleRate
	}
	if cfg.Audio.FrameSize < 256 {
		cfg.Audio.FrameSize = d.Audio.FrameSize
	}
	if cfg.Audio.OutputBufferMS <= 0 {
		cfg.Audio.OutputBufferMS = d.Audio.OutputBufferMS
	}
	if cfg.Session.StopTimeoutMS <= 0 {
		cfg.Session.StopTimeoutMS = d.Session.StopTimeoutMS
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if cfg.Log.Format != "json" {
		cfg.Log.Format = "text"
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
