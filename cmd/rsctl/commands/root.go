package commands

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	easy "github.com/t-tomalak/logrus-easy-formatter"

	RSClientGo "github.com/risksense/RSClientGo"
)

// flag names
const (
	flagConfig   = "config"
	flagURL      = keyURL
	flagAPIKey   = keyAPIKey
	flagToken    = keyToken
	flagClientID = keyClientID
	flagLogLevel = keyLogLevel
)

// app carries the state shared by one command tree
type app struct {
	v          *viper.Viper
	cfg        Config
	configFile string
	logger     *logrus.Logger
}

// NewRootCmd builds the rsctl command tree with its own configuration state
func NewRootCmd() *cobra.Command {
	a := &app{
		v:      viper.New(),
		logger: newLogger(),
	}

	rootCmd := &cobra.Command{
		Use:   "rsctl",
		Short: "rsctl - search and export vulnerability data from the RiskSense platform",
		Long: `rsctl is a command line tool for the RiskSense platform API.
It searches hosts, applications and their findings with the platform's filter syntax
and runs bulk exports, downloading and extracting the resulting archive.

Configuration is read from flags, RS_* environment variables (a .env file is loaded if present)
and an optional rsctl.yaml config file, in that order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.SetOutput(cmd.ErrOrStderr())
			cfg, err := loadConfig(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level '%v': %w", cfg.LogLevel, err)
			}
			a.logger.SetLevel(level)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, flagConfig, "", "Config file (default ./rsctl.yaml or ~/rsctl.yaml)")
	flags.String(flagURL, "", "Platform URL, eg: https://platform.risksense.com (env: RS_URL)")
	flags.String(flagAPIKey, "", "Platform API key (env: RS_API_KEY)")
	flags.String(flagToken, "", "Bearer token, used when no API key is set (env: RS_TOKEN)")
	flags.Uint64(flagClientID, 0, "Client ID, chosen interactively when several clients are accessible (env: RS_CLIENT_ID)")
	flags.String(flagLogLevel, "info", "Log level: trace, debug, info, warn, error")

	for _, name := range []string{flagURL, flagAPIKey, flagToken, flagClientID, flagLogLevel} {
		if err := a.v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Errorf("failed to bind flag %v: %w", name, err))
		}
	}

	rootCmd.AddCommand(a.subjectsCmd())
	rootCmd.AddCommand(a.clientsCmd())
	rootCmd.AddCommand(a.searchCmd())
	rootCmd.AddCommand(a.templateCmd())
	rootCmd.AddCommand(a.exportCmd())
	return rootCmd
}

// Execute runs the rsctl command tree against os.Args
func Execute() error {
	return NewRootCmd().Execute()
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	myformatter := &easy.Formatter{}
	myformatter.TimestampFormat = "2006-01-02 15:04:05.000"
	myformatter.LogFormat = "[%lvl%][%time%] %msg%\n"
	logger.SetFormatter(myformatter)
	logger.SetOutput(os.Stderr)
	return logger
}

func newPlatformClient(cfg Config, logger *logrus.Logger) (*RSClientGo.RSClient, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var client *RSClientGo.RSClient
	var err error
	if cfg.APIKey != "" {
		client, err = RSClientGo.NewAPIKeyClient(httpClient, cfg.URL, cfg.APIKey, logger)
	} else {
		client, err = RSClientGo.NewBearerClient(httpClient, cfg.URL, cfg.Token, logger)
	}
	if err != nil {
		return nil, err
	}

	client.SetRetries(cfg.Retries, cfg.RetryDelay)
	vars := client.GetClientVars()
	vars.ExportPollingDelaySeconds = cfg.ExportPollDelay
	vars.ExportPollingMaxSeconds = cfg.ExportMaxWait
	vars.ExportKeepArchive = cfg.ExportKeepArchive
	client.SetClientVars(vars)
	return client, nil
}

// connect creates the platform client and settles which client ID it targets
func (a *app) connect(cmd *cobra.Command) (*RSClientGo.RSClient, error) {
	client, err := newPlatformClient(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	if a.cfg.ClientID != 0 {
		client.SetDefaultClientID(a.cfg.ClientID)
	}

	selector := newPromptSelector(cmd.InOrStdin(), cmd.ErrOrStderr())
	if _, err := client.ResolveDefaultClientID(selector); err != nil {
		return nil, err
	}
	a.logger.Debugf("Connected: %v", client.String())
	return client, nil
}

func (a *app) subjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List the searchable subjects",
		Args:  cobra.NoArgs,
		// no configuration is needed to list subjects
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := make([]string, 0)
			for _, s := range RSClientGo.KnownSubjects() {
				names = append(names, s.Name)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return err
		},
	}
}
