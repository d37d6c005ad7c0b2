package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// configuration keys, also accepted as RS_<KEY> environment variables (dashes become underscores)
const (
	keyURL            = "url"
	keyAPIKey         = "api-key"
	keyToken          = "token"
	keyClientID       = "client-id"
	keyLogLevel       = "log-level"
	keyRetries        = "retries"
	keyRetryDelay     = "retry-delay"
	keyTimeout        = "timeout"
	keyExportDelay    = "export-poll-delay"
	keyExportMaxWait  = "export-max-wait"
	keyExportKeepZip  = "export-keep-archive"
	envPrefix         = "RS"
	defaultConfigName = "rsctl"
)

type Config struct {
	URL               string
	APIKey            string
	Token             string
	ClientID          uint64
	LogLevel          string
	Retries           int
	RetryDelay        time.Duration
	Timeout           time.Duration
	ExportPollDelay   int
	ExportMaxWait     int
	ExportKeepArchive bool
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyRetries, 3)
	v.SetDefault(keyRetryDelay, time.Second)
	v.SetDefault(keyTimeout, 2*time.Minute)
	v.SetDefault(keyExportDelay, 5)
	v.SetDefault(keyExportMaxWait, 3600)
	v.SetDefault(keyExportKeepZip, false)
}

// loads .env (if present), then the config file (explicit path or ./rsctl.yaml, ~/rsctl.yaml), then RS_* env vars
// flags bound to v take precedence over all of them
func loadConfig(v *viper.Viper, configFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	setConfigDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{
		URL:               v.GetString(keyURL),
		APIKey:            v.GetString(keyAPIKey),
		Token:             v.GetString(keyToken),
		ClientID:          v.GetUint64(keyClientID),
		LogLevel:          v.GetString(keyLogLevel),
		Retries:           v.GetInt(keyRetries),
		RetryDelay:        v.GetDuration(keyRetryDelay),
		Timeout:           v.GetDuration(keyTimeout),
		ExportPollDelay:   v.GetInt(keyExportDelay),
		ExportMaxWait:     v.GetInt(keyExportMaxWait),
		ExportKeepArchive: v.GetBool(keyExportKeepZip),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.URL == "" {
		return fmt.Errorf("no platform URL configured - set %v in the config file, --%v or RS_URL", keyURL, keyURL)
	}
	if c.APIKey == "" && c.Token == "" {
		return fmt.Errorf("no credentials configured - set %v or %v", keyAPIKey, keyToken)
	}
	if c.ExportPollDelay < 0 || c.ExportMaxWait < 0 {
		return fmt.Errorf("export polling values must not be negative")
	}
	return nil
}
