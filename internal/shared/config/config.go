package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// MaxPageSize is the largest page Discord returns for a history request.
const MaxPageSize = 100

type Config struct {
	DiscordBotToken      string        `koanf:"discord_bot_token"`
	DiscordApplicationID string        `koanf:"discord_application_id"`
	DiscordPublicKey     string        `koanf:"discord_public_key"`
	DiscordGuildID       string        `koanf:"discord_guild_id"`
	HTTPPort             string        `koanf:"http_port"`
	PageSize             int           `koanf:"page_size"`
	FetchRate            float64       `koanf:"fetch_rate"`
	FetchRetries         int           `koanf:"fetch_retries"`
	MaxMessages          int           `koanf:"max_messages"`
	CommandTimeout       time.Duration `koanf:"-"`
	AllowedUsers         []string      `koanf:"-"`
	FeedChannels         []string      `koanf:"-"`
	AppEnv               AppEnv        `koanf:"-"`
}

var configFiles = []string{
	"config.yaml",
	"config.yml",
	"config.json",
	"config.toml",
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.With("context", "loading .env file").Wrap(err)
	}

	k := koanf.New(".")

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override config file values
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	cfg.CommandTimeout = k.Duration("command_timeout")
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 10 * time.Minute
	}

	cfg.AllowedUsers = parseList(k.Get("allowed_users"))
	cfg.FeedChannels = parseList(k.Get("feed_channels"))

	if appEnv, err := ParseAppEnv(k.String("app_env")); err == nil {
		cfg.AppEnv = appEnv
	} else {
		cfg.AppEnv = AppEnvProduction
	}

	cfg.PageSize = min(max(cfg.PageSize, 1), MaxPageSize)
	cfg.FetchRetries = max(cfg.FetchRetries, 0)
	cfg.MaxMessages = max(cfg.MaxMessages, 0)

	if cfg.DiscordBotToken == "" {
		return nil, scribeErrors.ErrMissingBotToken
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"http_port":       "8080",
		"page_size":       MaxPageSize,
		"fetch_rate":      5.0,
		"fetch_retries":   2,
		"max_messages":    0,
		"command_timeout": "10m",
		"app_env":         "production",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}

// parseList accepts either a comma-separated string (environment) or a list
// (config file) and returns the trimmed, non-empty entries.
func parseList(raw any) []string {
	switch v := raw.(type) {
	case string:
		return ParseList(v)
	case []any:
		return lo.FilterMap(v, func(item any, _ int) (string, bool) {
			switch val := item.(type) {
			case string:
				val = strings.TrimSpace(val)
				return val, val != ""
			case int:
				return strconv.Itoa(val), true
			case int64:
				return strconv.FormatInt(val, 10), true
			case float64:
				// Snowflakes above 2^53 lose precision as JSON numbers; quote them.
				return strconv.FormatFloat(val, 'f', -1, 64), true
			default:
				return "", false
			}
		})
	default:
		return []string{}
	}
}

// ParseList splits a comma-separated string into trimmed, non-empty entries
func ParseList(s string) []string {
	if s == "" {
		return []string{}
	}
	return lo.FilterMap(strings.Split(s, ","), func(part string, _ int) (string, bool) {
		part = strings.TrimSpace(part)
		return part, part != ""
	})
}

// IsFeedChannel reports whether the channel may be served as a public feed.
func (c *Config) IsFeedChannel(channelID string) bool {
	return lo.Contains(c.FeedChannels, channelID)
}
