// Package profile holds the process configuration for the aki server.
package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, deepseek, openrouter, ollama) use the same config.
	LLMProvider string // Provider identifier: openai, deepseek, openrouter, ollama
	LLMAPIKey   string
	LLMBaseURL  string // Optional, has a default per provider
	LLMModel    string // Primary conversation model
	LLMTimeout  int    // Request timeout in seconds (default: 120)

	// SummaryModel is the model used for background condensation calls.
	// Defaults to LLMModel; a cheaper model is usually enough here.
	SummaryModel string

	// ObservationModel is the model used for the per-turn observation pass.
	ObservationModel string

	// Telegram channel configuration.
	TelegramBotToken string

	// Timezone is the IANA zone all user-facing timestamps are rendered in
	// and time expressions are resolved against.
	Timezone string

	// Memory compaction tuning.
	CompactInterval int // Exchanges between compact summaries (default: 10)
	MemoryInterval  int // Exchanges between memory entries (default: 10)

	// Context assembly limits.
	SummaryFetchLimit   int // Durable records fetched before kind filtering (default: 20)
	SummaryDisplayLimit int // Compact summaries shown in context (default: 10)
	TailLimit           int // Raw exchanges shown in context (default: 20)

	// Response post-processing.
	AutoSplitThreshold int // Single messages longer than this get re-split (default: 500)
	MaxChunkLen        int // Target max length for re-split chunks (default: 300)

	// Reaction cadence bounds, in turns.
	ReactionMinTurns int // default: 1
	ReactionMaxTurns int // default: 5

	// IntentSweepSpec is the cron spec for the due-intent sweep (default: "@every 5m").
	IntentSweepSpec string

	Mode     string // prod, dev, demo
	Addr     string
	Port     int
	Data     string
	Driver   string // sqlite, postgres
	DSN      string
	Version  string
	UNIXSock string
}

// Provider default configurations for the LLM, used when the base URL or
// model is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "anthropic/claude-sonnet-4",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured (ollama excepted).
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// Location resolves the configured timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		slog.Warn("invalid timezone, falling back to UTC", "timezone", p.Timezone)
		return time.UTC
	}
	return loc
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("AKI_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("AKI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("AKI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("AKI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("AKI_LLM_TIMEOUT_SECONDS", 120)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
		p.LLMProvider = "openai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.SummaryModel = getEnvOrDefault("AKI_SUMMARY_MODEL", p.LLMModel)
	p.ObservationModel = getEnvOrDefault("AKI_OBSERVATION_MODEL", p.SummaryModel)

	p.TelegramBotToken = getEnvOrDefault("AKI_TELEGRAM_BOT_TOKEN", "")
	p.Timezone = getEnvOrDefault("AKI_TIMEZONE", "America/Toronto")

	p.CompactInterval = getEnvOrDefaultInt("AKI_COMPACT_INTERVAL", 10)
	p.MemoryInterval = getEnvOrDefaultInt("AKI_MEMORY_INTERVAL", 10)
	p.SummaryFetchLimit = getEnvOrDefaultInt("AKI_SUMMARY_FETCH_LIMIT", 20)
	p.SummaryDisplayLimit = getEnvOrDefaultInt("AKI_SUMMARY_DISPLAY_LIMIT", 10)
	p.TailLimit = getEnvOrDefaultInt("AKI_TAIL_LIMIT", 20)
	p.AutoSplitThreshold = getEnvOrDefaultInt("AKI_AUTOSPLIT_THRESHOLD", 500)
	p.MaxChunkLen = getEnvOrDefaultInt("AKI_MAX_CHUNK_LEN", 300)
	p.ReactionMinTurns = getEnvOrDefaultInt("AKI_REACTION_MIN_TURNS", 1)
	p.ReactionMaxTurns = getEnvOrDefaultInt("AKI_REACTION_MAX_TURNS", 5)
	p.IntentSweepSpec = getEnvOrDefault("AKI_INTENT_SWEEP_SPEC", "@every 5m")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if a relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "aki")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", "data", p.Data, "error", err)
					return err
				}
			}
		} else {
			p.Data = "/var/opt/aki"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", "data", p.Data, "error", err)
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("aki_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres driver")
	}

	if p.CompactInterval <= 0 {
		p.CompactInterval = 10
	}
	if p.MemoryInterval <= 0 {
		p.MemoryInterval = 10
	}
	if p.SummaryFetchLimit < p.SummaryDisplayLimit {
		// Summaries share a table with other durable record kinds, so the
		// fetch window must be at least as wide as the display window.
		p.SummaryFetchLimit = p.SummaryDisplayLimit * 2
	}
	if p.ReactionMinTurns < 1 {
		p.ReactionMinTurns = 1
	}
	if p.ReactionMaxTurns < p.ReactionMinTurns {
		p.ReactionMaxTurns = p.ReactionMinTurns
	}

	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
	}

	return nil
}
