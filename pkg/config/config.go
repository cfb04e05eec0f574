// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package config loads the voicegraph AppConfig from environment variables
// (and an optional .env file) via viper, validated with go-playground/validator.
// This mirrors the teacher's api/integration-api/config/config.go pattern.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the root configuration for a voicegraph process. Every field
// the service needs is represented here with a sane default.
type AppConfig struct {
	ServiceName string `mapstructure:"service_name" validate:"required"`
	Version     string `mapstructure:"version" validate:"required"`
	Host        string `mapstructure:"host" validate:"required"`
	Port        int    `mapstructure:"port" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"required"`
	LogFile     string `mapstructure:"log_file"`

	// GRPCSignalPort only sets the grpc_signalling flag reported by GET
	// /health (true when > 0). The robot-native signalling stream is always
	// served on Port, multiplexed with HTTP signalling via cmux.
	GRPCSignalPort int `mapstructure:"grpc_signal_port"`

	STT    STTConfig    `mapstructure:"stt"`
	LLM    LLMConfig    `mapstructure:"llm"`
	TTS    TTSConfig    `mapstructure:"tts"`
	Memory MemoryConfig `mapstructure:"memory"`
	Gate   GateConfig   `mapstructure:"gate"`
	VAD    VADConfig    `mapstructure:"vad"`
	Turn   TurnConfig   `mapstructure:"turn"`
	Robot  RobotConfig  `mapstructure:"robot"`

	Observer  ObserverConfig  `mapstructure:"observer"`
	Transport TransportConfig `mapstructure:"transport"`
	Vision    VisionConfig    `mapstructure:"vision"`

	JWTSecret string `mapstructure:"jwt_secret"`
}

type STTConfig struct {
	Provider      string `mapstructure:"provider"`       // deepgram|google|azure
	Language      string `mapstructure:"language"`
	APIKey        string `mapstructure:"api_key"`
	InterimMs     int    `mapstructure:"interim_budget_ms"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"` // openai|anthropic
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	// ContextWindowTokens bounds the conversation context window.
	ContextWindowTokens int `mapstructure:"context_window_tokens"`
}

type TTSConfig struct {
	Provider string `mapstructure:"provider"` // google|aws
	Voice    string `mapstructure:"voice"`
	APIKey   string `mapstructure:"api_key"`
}

type MemoryConfig struct {
	Enabled               bool    `mapstructure:"enabled"`
	Backend               string  `mapstructure:"backend"` // gorm|opensearch|none
	K                     int     `mapstructure:"k"`
	RecallBudgetMs        int     `mapstructure:"recall_budget_ms"`
	StoreAssistantReplies bool    `mapstructure:"store_assistant_replies"`
	DSN                   string  `mapstructure:"dsn"`
	OpenSearchURL         string  `mapstructure:"opensearch_url"`
	OpenSearchAlpha       float64 `mapstructure:"opensearch_alpha"`
}

type GateConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	BudgetMs  int    `mapstructure:"budget_ms"`
	FailMode  string `mapstructure:"fail_mode"` // open|closed
	LookbackK int    `mapstructure:"lookback_k"`
	APIKey    string `mapstructure:"api_key"`
}

type VADConfig struct {
	SilenceMs int    `mapstructure:"silence_ms"`
	ModelPath string `mapstructure:"model_path"`
}

// VisionConfig controls the camera-frame analysis adapter invoked after a
// capture_camera_view tool call.
type VisionConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type TurnConfig struct {
	StabiliseMs    int `mapstructure:"stabilise_ms"`
	HardDeadlineMs int `mapstructure:"hard_deadline_ms"`
}

type RobotConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Address      string `mapstructure:"address"`
	CommandMs    int    `mapstructure:"command_deadline_ms"`
	CaptureMs    int    `mapstructure:"capture_deadline_ms"`
	MCPServerURL string `mapstructure:"mcp_server_url"`
}

type ObserverConfig struct {
	SnapshotMs  int `mapstructure:"snapshot_ms"`
	WindowTurns int `mapstructure:"window_turns"`
	TableTurns  int `mapstructure:"table_turns"`
	RedisAddr   string `mapstructure:"redis_addr"`
}

type TransportConfig struct {
	ForwardPartialsDuringTTS bool `mapstructure:"forward_partials_during_tts"`
	TurnAbortDeadlineMs      int  `mapstructure:"turn_abort_deadline_ms"`
	ICEFailureGraceMs        int  `mapstructure:"ice_failure_grace_ms"`
}

// Load reads configuration from ENV_PATH (or ./.env) and environment
// variables, applies defaults, and validates the result.
func Load() (*AppConfig, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		v.SetConfigFile(path)
	}
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "voicegraph")
	v.SetDefault("VERSION", "0.1.0")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GRPC_SIGNAL_PORT", 8081)
	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("STT__PROVIDER", "deepgram")
	v.SetDefault("STT__LANGUAGE", "en-US")
	v.SetDefault("STT__INTERIM_BUDGET_MS", 1500)

	v.SetDefault("LLM__PROVIDER", "openai")
	v.SetDefault("LLM__MODEL", "gpt-4o-mini")
	v.SetDefault("LLM__CONTEXT_WINDOW_TOKENS", 8000)

	v.SetDefault("TTS__PROVIDER", "google")
	v.SetDefault("TTS__VOICE", "en-US-Neural2-C")

	v.SetDefault("MEMORY__ENABLED", false)
	v.SetDefault("MEMORY__BACKEND", "none")
	v.SetDefault("MEMORY__K", 5)
	v.SetDefault("MEMORY__RECALL_BUDGET_MS", 50)
	v.SetDefault("MEMORY__STORE_ASSISTANT_REPLIES", false)
	v.SetDefault("MEMORY__OPENSEARCH_ALPHA", 0.5)

	v.SetDefault("GATE__ENABLED", true)
	v.SetDefault("GATE__BUDGET_MS", 400)
	v.SetDefault("GATE__FAIL_MODE", "open")
	v.SetDefault("GATE__LOOKBACK_K", 4)

	v.SetDefault("VAD__SILENCE_MS", 600)
	v.SetDefault("VAD__MODEL_PATH", "./models/silero_vad.onnx")

	v.SetDefault("VISION__ENABLED", false)
	v.SetDefault("VISION__MODEL", "gemini-2.0-flash")

	v.SetDefault("TURN__STABILISE_MS", 300)
	v.SetDefault("TURN__HARD_DEADLINE_MS", 1500)

	v.SetDefault("ROBOT__ENABLED", false)
	v.SetDefault("ROBOT__COMMAND_DEADLINE_MS", 300)
	v.SetDefault("ROBOT__CAPTURE_DEADLINE_MS", 1000)

	v.SetDefault("OBSERVER__SNAPSHOT_MS", 500)
	v.SetDefault("OBSERVER__WINDOW_TURNS", 100)
	v.SetDefault("OBSERVER__TABLE_TURNS", 20)

	v.SetDefault("TRANSPORT__FORWARD_PARTIALS_DURING_TTS", false)
	v.SetDefault("TRANSPORT__TURN_ABORT_DEADLINE_MS", 200)
	v.SetDefault("TRANSPORT__ICE_FAILURE_GRACE_MS", 5000)
}
