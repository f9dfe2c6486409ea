package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token     string   `yaml:"token"`
	Mode      string   `yaml:"mode"` // polling | webhook (future)
	Username  string   `yaml:"username"`
	Workers   int      `yaml:"workers"` // polling workers
	Whitelist []string `yaml:"whitelist_usernames"`
	AdminIDs  []int64  `yaml:"admin_chat_ids"` // operator chats for payment approvals
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"` // health + metrics listener
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	QuizTTL  time.Duration `yaml:"quiz_ttl"` // onboarding session lifetime
}

type AIConfig struct {
	Provider     string        `yaml:"provider"` // ollama | openai
	OllamaURL    string        `yaml:"ollama_url"`
	OpenAIKey    string        `yaml:"openai_key"`
	OpenAIBase   string        `yaml:"openai_base"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	TokenBudget  int           `yaml:"token_budget"`  // prompt budget for history
	HistoryTurns int           `yaml:"history_turns"` // window of recent rows
}

type SpeechConfig struct {
	WhisperURL string        `yaml:"whisper_url"`
	TTSURL     string        `yaml:"tts_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type ChainConfig struct {
	APIKey        string        `yaml:"api_key"` // BscScan
	APIURL        string        `yaml:"api_url"`
	Wallet        string        `yaml:"wallet"`
	USDTContract  string        `yaml:"usdt_contract"`
	CheckInterval time.Duration `yaml:"check_interval"`
	PriceUSDT     float64       `yaml:"price_usdt"`
	Tolerance     float64       `yaml:"tolerance"`
}

type LimitsConfig struct {
	FreeMessages    int           `yaml:"free_messages"`
	RateLimitEvery  time.Duration `yaml:"rate_limit_every"` // min interval between a user's messages
	UpsellThreshold int           `yaml:"upsell_threshold"` // warn when this many free messages remain
}

type ReferralConfig struct {
	BonusMessages int           `yaml:"bonus_messages"` // invitee reward without subscription
	BonusDays     int           `yaml:"bonus_days"`     // invitee/inviter premium extension
	Cooldown      time.Duration `yaml:"cooldown"`       // inviter-side reward window
}

type Milestone struct {
	Days          int `yaml:"days"`
	BonusMessages int `yaml:"bonus_messages"`
	PremiumDays   int `yaml:"premium_days"`
}

type StreakConfig struct {
	Milestones []Milestone `yaml:"milestones"`
}

type PaymentConfig struct {
	StarsPrice       int    `yaml:"stars_price"`
	SubscriptionDays int    `yaml:"subscription_days"`
	PhoneNumber      string `yaml:"phone_number"`
	PhonePriceLabel  string `yaml:"phone_price_label"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Speech   SpeechConfig   `yaml:"speech"`
	Chain    ChainConfig    `yaml:"chain"`
	Limits   LimitsConfig   `yaml:"limits"`
	Referral ReferralConfig `yaml:"referral"`
	Streak   StreakConfig   `yaml:"streak"`
	Payment  PaymentConfig  `yaml:"payment"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.QuizTTL <= 0 {
		cfg.Redis.QuizTTL = 30 * time.Minute
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "ollama"
	}
	if cfg.AI.OllamaURL == "" {
		cfg.AI.OllamaURL = "http://localhost:11434"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "llama3:latest"
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 30 * time.Second
	}
	if cfg.AI.TokenBudget <= 0 {
		cfg.AI.TokenBudget = 1500
	}
	if cfg.AI.HistoryTurns <= 0 {
		cfg.AI.HistoryTurns = 10
	}
	if cfg.Speech.Timeout <= 0 {
		cfg.Speech.Timeout = 60 * time.Second
	}
	if cfg.Chain.APIURL == "" {
		cfg.Chain.APIURL = "https://api.bscscan.com/api"
	}
	if cfg.Chain.USDTContract == "" {
		cfg.Chain.USDTContract = "0x55d398326f99059fF775485246999027B3197955"
	}
	if cfg.Chain.CheckInterval <= 0 {
		cfg.Chain.CheckInterval = 5 * time.Minute
	}
	if cfg.Chain.PriceUSDT <= 0 {
		cfg.Chain.PriceUSDT = 1.5
	}
	if cfg.Chain.Tolerance <= 0 {
		cfg.Chain.Tolerance = 0.01
	}
	if cfg.Limits.FreeMessages <= 0 {
		cfg.Limits.FreeMessages = 25
	}
	if cfg.Limits.RateLimitEvery <= 0 {
		cfg.Limits.RateLimitEvery = 3 * time.Second
	}
	if cfg.Limits.UpsellThreshold <= 0 {
		cfg.Limits.UpsellThreshold = 5
	}
	if cfg.Referral.BonusMessages <= 0 {
		cfg.Referral.BonusMessages = 50
	}
	if cfg.Referral.BonusDays <= 0 {
		cfg.Referral.BonusDays = 1
	}
	if cfg.Referral.Cooldown <= 0 {
		cfg.Referral.Cooldown = 7 * 24 * time.Hour
	}
	if len(cfg.Streak.Milestones) == 0 {
		cfg.Streak.Milestones = []Milestone{
			{Days: 3, BonusMessages: 5},
			{Days: 7, BonusMessages: 10},
			{Days: 14, BonusMessages: 20},
			{Days: 30, PremiumDays: 1},
		}
	}
	sort.Slice(cfg.Streak.Milestones, func(i, j int) bool {
		return cfg.Streak.Milestones[i].Days < cfg.Streak.Milestones[j].Days
	})
	if cfg.Payment.StarsPrice <= 0 {
		cfg.Payment.StarsPrice = 100
	}
	if cfg.Payment.SubscriptionDays <= 0 {
		cfg.Payment.SubscriptionDays = 7
	}
}

// IsAdmin reports whether a chat id belongs to an operator.
func (cfg *Config) IsAdmin(chatID int64) bool {
	for _, id := range cfg.Bot.AdminIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// IsWhitelisted reports whether a handle is on the operator allow-list.
func (cfg *Config) IsWhitelisted(username string) bool {
	if username == "" {
		return false
	}
	for _, w := range cfg.Bot.Whitelist {
		if w == username {
			return true
		}
	}
	return false
}
