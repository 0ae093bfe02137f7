package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		BotUsername      string   `env:"BOT_USERNAME,default=variantsgg_bot"`
		EnabledHandlers  []string `env:"HANDLERS,default=variants"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.variants"`
		MetricsAddr      string   `env:"METRICS_ADDR,default=:2112"`
		LLM              LLM
		Game             Game
		Facts            Facts
	}

	LLM struct {
		APIKey  string `env:"LLM_API_KEY,required"`
		Model   string `env:"LLM_API_MODEL,default=gpt-4o-mini"`
		BaseURL string `env:"LLM_API_URL,default=https://api.openai.com/v1"`
		Type    string `env:"LLM_API_TYPE,default=openai"`
	}

	Game struct {
		CollectingDuration time.Duration `env:"GAME_COLLECTING_DURATION,default=70s"`
		VotingDuration     time.Duration `env:"GAME_VOTING_DURATION,default=30s"`
		TickInterval       time.Duration `env:"GAME_TICK_INTERVAL,default=10s"`
		Cooldown           time.Duration `env:"GAME_COOLDOWN,default=60s"`
		MaxParticipants    int           `env:"GAME_MAX_PARTICIPANTS,default=9"`
		MaxAnswerLength    int           `env:"GAME_MAX_ANSWER_LENGTH,default=100"`
	}

	Facts struct {
		APIURL  string        `env:"FACTS_API_URL,default=https://uselessfacts.jsph.pl/api/v2/facts/random"`
		Timeout time.Duration `env:"FACTS_TIMEOUT,default=10s"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("VG_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		home, err := os.UserHomeDir()
		if err != nil {
			globalErr = fmt.Errorf("get user home directory: %w", err)
			return
		}
		cfg.DotPath = strings.Replace(cfg.DotPath, "~", home, 1)
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
