package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	OpenAIKey     string
	ParamPrefix   string
	OpenAIBaseURL string
	CheckModel    string
	QuestionModel string
	AssetRoot     string
	LogLevel      string
	LogFormat     string
}

var defaults = map[string]string{
	"OPEN_AI":         "",
	"PARAM_PREFIX":    "",
	"OPENAI_BASE_URL": "",
	"CHECK_MODEL":     "gpt-4o",
	"QUESTION_MODEL":  "gpt-4.1-nano",
	"ASSET_ROOT":      "/app",
	"LOG_LEVEL":       "info",
	"LOG_FORMAT":      "json",
}

// Load reads the environment, after merging envFiles into it. Missing env
// files are skipped; variables already set are never overridden.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	v := viper.New()
	for key, def := range defaults {
		v.SetDefault(key, def)
		// AutomaticEnv only resolves keys viper already knows about.
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	cfg := Config{
		OpenAIKey:     strings.TrimSpace(v.GetString("OPEN_AI")),
		ParamPrefix:   strings.TrimRight(strings.TrimSpace(v.GetString("PARAM_PREFIX")), "/"),
		OpenAIBaseURL: strings.TrimSpace(v.GetString("OPENAI_BASE_URL")),
		CheckModel:    v.GetString("CHECK_MODEL"),
		QuestionModel: v.GetString("QUESTION_MODEL"),
		AssetRoot:     v.GetString("ASSET_ROOT"),
		LogLevel:      strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:     strings.ToLower(v.GetString("LOG_FORMAT")),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.AssetRoot) == "" {
		return errors.New("config: ASSET_ROOT must not be empty")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}
