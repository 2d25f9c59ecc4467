package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ConfigFileName = "config"
	ConfigFileType = "yaml"
	JarvisDirName  = ".jarvis"
	EnvPrefix      = "JARVIS"
)

// Config holds the application configuration
type Config struct {
	Dir      string         `mapstructure:"-"`
	AI       AIConfig       `mapstructure:"ai"`
	Security SecurityConfig `mapstructure:"security"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Voice    VoiceConfig    `mapstructure:"voice"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Weather  WeatherConfig  `mapstructure:"weather"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Log      LogConfig      `mapstructure:"log"`
}

// AIConfig holds AI-related configuration
type AIConfig struct {
	Provider        string `mapstructure:"provider"`
	APIKey          string `mapstructure:"api_key"`
	Model           string `mapstructure:"model"`
	BaseURL         string `mapstructure:"base_url"`
	Timeout         int    `mapstructure:"timeout"`
	Proxy           string `mapstructure:"proxy"`
	TranscribeModel string `mapstructure:"transcribe_model"`
	SpeechModel     string `mapstructure:"speech_model"`
	Voice           string `mapstructure:"voice"`
	WhisperModel    string `mapstructure:"whisper_model"`
	Language        string `mapstructure:"language"`
}

// SecurityConfig holds the authorization settings
type SecurityConfig struct {
	AllowlistPath string `mapstructure:"allowlist_path"`
	AuditLog      string `mapstructure:"audit_log"`
	AdminSecret   string `mapstructure:"admin_secret"`
	// ConfirmTimeout is in seconds; zero waits forever.
	ConfirmTimeout int    `mapstructure:"confirm_timeout"`
	ConfirmStyle   string `mapstructure:"confirm_style"`
}

// ExecutorConfig holds command execution settings
type ExecutorConfig struct {
	ScreenshotDir string `mapstructure:"screenshot_dir"`
}

// VoiceConfig holds audio file locations
type VoiceConfig struct {
	RecordingPath string `mapstructure:"recording_path"`
	ResponseDir   string `mapstructure:"response_dir"`
	SocketPath    string `mapstructure:"socket_path"`
}

// ChatConfig holds chat-related configuration
type ChatConfig struct {
	Persona        string `mapstructure:"persona"`
	MaxHistory     int    `mapstructure:"max_history"`
	AutoSave       bool   `mapstructure:"auto_save"`
	RenderMarkdown bool   `mapstructure:"render_markdown"`
}

// WeatherConfig holds the weather API endpoints
type WeatherConfig struct {
	GeocodingURL string `mapstructure:"geocoding_url"`
	ForecastURL  string `mapstructure:"forecast_url"`
}

// QueueConfig holds the utterance queue settings
type QueueConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Confirm styles.
const (
	ConfirmStylePrompt = "prompt"
	ConfirmStyleForm   = "form"
)

// DefaultChatConfig returns default chat configuration
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		Persona:        "jarvis",
		MaxHistory:     20,
		AutoSave:       true,
		RenderMarkdown: true,
	}
}

// GetConfigDir returns the jarvis config directory path. JARVIS_HOME
// overrides the default ~/.jarvis.
func GetConfigDir() (string, error) {
	if dir := os.Getenv("JARVIS_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, JarvisDirName), nil
}

// InitConfig loads the configuration from the default directory.
func InitConfig() (*Config, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	return LoadConfig(dir)
}

// LoadConfig reads <dir>/config.yaml over the defaults. A .env file in dir
// or the working directory is loaded first; variables already set in the
// environment win. Relative paths in the result are resolved against dir.
func LoadConfig(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	for _, envFile := range []string{filepath.Join(dir, ".env"), ".env"} {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileType)
	v.AddConfigPath(dir)

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional names used by the providers' own tooling.
	_ = v.BindEnv("ai.api_key", "JARVIS_AI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("security.admin_secret", "JARVIS_SECURITY_ADMIN_SECRET", "JARVIS_ADMIN_SECRET")

	// Read config file (ignore if not exists)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Dir = dir

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.timeout", 60)
	v.SetDefault("ai.proxy", "")
	v.SetDefault("ai.transcribe_model", "whisper-1")
	v.SetDefault("ai.speech_model", "tts-1")
	v.SetDefault("ai.voice", "onyx")
	v.SetDefault("ai.whisper_model", "models/ggml-base.en.bin")
	v.SetDefault("ai.language", "en")

	// Security defaults
	v.SetDefault("security.allowlist_path", "allowlist.json")
	v.SetDefault("security.audit_log", "audit.log")
	v.SetDefault("security.admin_secret", "")
	v.SetDefault("security.confirm_timeout", 0)
	v.SetDefault("security.confirm_style", ConfirmStylePrompt)

	v.SetDefault("executor.screenshot_dir", "screenshots")

	v.SetDefault("voice.recording_path", "recording.wav")
	v.SetDefault("voice.response_dir", "responses")
	v.SetDefault("voice.socket_path", "jarvis.sock")

	// Chat defaults
	chat := DefaultChatConfig()
	v.SetDefault("chat.persona", chat.Persona)
	v.SetDefault("chat.max_history", chat.MaxHistory)
	v.SetDefault("chat.auto_save", chat.AutoSave)
	v.SetDefault("chat.render_markdown", chat.RenderMarkdown)

	v.SetDefault("weather.geocoding_url", "")
	v.SetDefault("weather.forecast_url", "")

	v.SetDefault("queue.capacity", 8)
	v.SetDefault("log.level", "info")
}

func (c *Config) resolvePaths() error {
	for _, p := range []*string{
		&c.Security.AllowlistPath,
		&c.Security.AuditLog,
		&c.Executor.ScreenshotDir,
		&c.Voice.RecordingPath,
		&c.Voice.ResponseDir,
		&c.Voice.SocketPath,
		&c.AI.WhisperModel,
	} {
		resolved, err := c.resolve(*p)
		if err != nil {
			return err
		}
		*p = resolved
	}
	return nil
}

func (c *Config) resolve(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("invalid path %q: %w", path, err)
		}
		path = filepath.Join(home, path[1:])
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(c.Dir, path), nil
}

func (c *Config) validate() error {
	switch c.Security.ConfirmStyle {
	case ConfirmStylePrompt, ConfirmStyleForm:
	default:
		return fmt.Errorf("security.confirm_style must be %q or %q, got %q",
			ConfirmStylePrompt, ConfirmStyleForm, c.Security.ConfirmStyle)
	}
	if c.Security.ConfirmTimeout < 0 {
		return fmt.Errorf("security.confirm_timeout must not be negative")
	}
	if c.Queue.Capacity < 1 {
		return fmt.Errorf("queue.capacity must be at least 1")
	}
	return nil
}

// ConfirmTimeout returns the confirmation timeout; zero means none.
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Security.ConfirmTimeout) * time.Second
}

// AITimeout returns the provider request timeout.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.Timeout) * time.Second
}

// ConversationsDir is where chat sessions are saved.
func (c *Config) ConversationsDir() string {
	return filepath.Join(c.Dir, "conversations")
}

// PersonasDir holds persona markdown files.
func (c *Config) PersonasDir() string {
	return filepath.Join(c.Dir, "personas")
}

// UseLocalTranscriber reports whether speech should be transcribed by the
// local whisper model rather than the API.
func (c *Config) UseLocalTranscriber() bool {
	return c.AI.APIKey == "" || c.AI.Provider == "local"
}
