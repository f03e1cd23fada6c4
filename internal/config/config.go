package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

var ErrNoToken = errors.New("discord token is not set")

type Config struct {
	DiscordToken      string `env:"DISCORD_TOKEN"`
	DiscordTokenFile  string `env:"DISCORD_TOKEN_FILE" envDefault:"DISCORD_TOKEN"`
	InitSlashCommands bool   `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	CommandCacheDir   string `env:"COMMAND_CACHE_DIR" envDefault:"data/commands"`

	PlayUsersPath string `env:"PLAY_USERS_PATH" envDefault:"PLAY_USERS"`
	SkipUsersPath string `env:"SKIP_USERS_PATH" envDefault:"SKIP_USERS"`

	QueueChannelName   string        `env:"QUEUE_CHANNEL_NAME" envDefault:"music"`
	QueueChannelWait   time.Duration `env:"QUEUE_CHANNEL_WAIT" envDefault:"30s"`
	StatusViewSize     int           `env:"STATUS_VIEW_SIZE" envDefault:"5"`
	SoftDurationLimit  time.Duration `env:"SOFT_DURATION_LIMIT" envDefault:"900s"`
	HardDurationLimit  time.Duration `env:"HARD_DURATION_LIMIT" envDefault:"18000s"`
	DownloadPath       string        `env:"DOWNLOAD_PATH" envDefault:"/tmp/frisbee-temporary"`
	PlayablePath       string        `env:"PLAYABLE_PATH" envDefault:"/tmp/frisbee-processed.mka"`
	NotifyDroppedTrack bool          `env:"NOTIFY_DROPPED_TRACK" envDefault:"true"`
	FFmpegPath         string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
}

// New parses the configuration from the environment. The Discord token is
// taken from DISCORD_TOKEN, or read once from the token file when the
// variable is empty.
func New() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DiscordToken == "" && cfg.DiscordTokenFile != "" {
		data, err := os.ReadFile(cfg.DiscordTokenFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read token file %q: %w", cfg.DiscordTokenFile, err)
		}
		cfg.DiscordToken = string(data)
	}
	cfg.DiscordToken = strings.TrimSpace(cfg.DiscordToken)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DiscordToken == "" {
		return ErrNoToken
	}
	if c.QueueChannelName == "" {
		return errors.New("QUEUE_CHANNEL_NAME must not be empty")
	}
	if c.StatusViewSize <= 0 {
		return fmt.Errorf("STATUS_VIEW_SIZE must be positive, got %d", c.StatusViewSize)
	}
	if c.SoftDurationLimit <= 0 || c.HardDurationLimit <= 0 {
		return errors.New("duration limits must be positive")
	}
	if c.SoftDurationLimit > c.HardDurationLimit {
		return fmt.Errorf("soft duration limit %v exceeds hard limit %v", c.SoftDurationLimit, c.HardDurationLimit)
	}
	if c.DownloadPath == c.PlayablePath {
		return errors.New("DOWNLOAD_PATH and PLAYABLE_PATH must differ")
	}
	return nil
}
