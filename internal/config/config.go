package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/Counsel/internal/app/draft"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	SendBuffer int           `mapstructure:"send_buffer"`
	LogLevel   string        `mapstructure:"log_level"`
	// Backpressure is "kick" (close slow connections) or "drop" (skip the frame).
	Backpressure string `mapstructure:"backpressure"`

	LegacyJoin   bool          `mapstructure:"legacy_join"`
	HistoryLimit int           `mapstructure:"history_limit"`
	RoomIdleTTL  time.Duration `mapstructure:"room_idle_ttl"`
	QueueSize    int           `mapstructure:"queue_size"`

	RateLimit RateLimit `mapstructure:"rate_limit"`
	AI        AI        `mapstructure:"ai"`
}

// RateLimit caps chat events per connection; a zero limit disables it.
type RateLimit struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

type AI struct {
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	Model              string        `mapstructure:"model"`
	Timeout            time.Duration `mapstructure:"timeout"`
	ReplyErrorMessage  string        `mapstructure:"reply_error_message"`
	RefineErrorMessage string        `mapstructure:"refine_error_message"`
	Prompts            draft.Prompts `mapstructure:"prompts"`
}

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return load(fmt.Sprintf("config/config.%s.yaml", env))
}

func load(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("COUNSEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "COUNSEL_PORT", "PORT")
	_ = v.BindEnv("ai.api_key", "COUNSEL_AI_API_KEY", "OPENAI_API_KEY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		cfg.Secret = uuid.NewString()
		log.Warn().Str("module", "config").Msg("no session secret configured; sessions will not survive a restart")
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("model", cfg.AI.Model).
		Bool("ai_key", cfg.AI.APIKey != "").
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("log_level", "info")
	v.SetDefault("backpressure", "kick")

	v.SetDefault("legacy_join", false)
	v.SetDefault("history_limit", 50)
	v.SetDefault("room_idle_ttl", "30m")
	v.SetDefault("queue_size", 1024)

	v.SetDefault("rate_limit.limit", 10)
	v.SetDefault("rate_limit.interval", "5s")

	p := draft.DefaultPrompts()
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "gpt-5")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.reply_error_message", "")
	v.SetDefault("ai.refine_error_message", "")
	v.SetDefault("ai.prompts.reply_system", p.ReplySystem)
	v.SetDefault("ai.prompts.reply_task", p.ReplyTask)
	v.SetDefault("ai.prompts.refine_system", p.RefineSystem)
	v.SetDefault("ai.prompts.refine_task", p.RefineTask)
}
