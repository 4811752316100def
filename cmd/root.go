package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wrenflow/ticketeer/ticketeer"
)

var (
	cfg        = ticketeer.DefaultConfig()
	configFile string
)

var rootCmd = &cobra.Command{
	Use: "ticketeer [flags]",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					LevelToStringHookFunc(),
				),
			),
		)
		if err != nil {
			log.Fatalln(err)
		}
	},
}

func getLogLevel(level string) (slog.Level, error) {
	switch level {
	case slog.LevelDebug.String():
		return slog.LevelDebug, nil
	case slog.LevelInfo.String():
		return slog.LevelInfo, nil
	case slog.LevelWarn.String():
		return slog.LevelWarn, nil
	case slog.LevelError.String():
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// LevelToStringHookFunc decodes log level strings into *slog.LevelVar
// during viper unmarshaling.
func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t.Kind() != reflect.Ptr {
			return data, nil
		}

		typ := t.Elem()

		if typ != reflect.TypeOf(slog.LevelVar{}) {
			return data, nil
		}
		lvl, err := getLogLevel(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		lvlVar := &slog.LevelVar{}
		lvlVar.Set(lvl)
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		fmt.Println("loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			log.Println("No .env file found")
		}
	}

	viper.SetDefault("database", ticketeer.DefaultDatabase)
	viper.SetDefault("database_type", ticketeer.DefaultDatabaseType)
	viper.SetDefault(
		"database_slow_threshold",
		ticketeer.DefaultDatabaseSlowThreshold,
	)
	viper.SetDefault(
		"database_log_level",
		ticketeer.DefaultDatabaseLogLevel.String(),
	)
	viper.SetDefault("data_dir", ticketeer.DefaultDataDir)

	viper.SetDefault("log_level", ticketeer.DefaultLogLevel.String())

	viper.SetDefault("startup_timeout", ticketeer.DefaultStartupTimeout)
	viper.SetDefault("shutdown_timeout", ticketeer.DefaultShutdownTimeout)

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault(
		"discord.log_level",
		ticketeer.DefaultDiscordLogLevel.String(),
	)
	viper.SetDefault(
		"discord.discordgo_log_level",
		ticketeer.DefaultDiscordgoLogLevel.String(),
	)
	viper.SetDefault(
		"discord.gateway_intents",
		ticketeer.DefaultDiscordGatewayIntent,
	)
	viper.SetDefault("discord.notification_channel_id", "")
	viper.SetDefault(
		"discord.startup_message",
		ticketeer.DefaultDiscordStartupMessage,
	)
	viper.SetDefault(
		"discord.custom_status",
		ticketeer.DefaultDiscordCustomStatus,
	)

	// Ticket config
	viper.SetDefault("tickets.webhook_url", "")
	viper.SetDefault(
		"tickets.category_name",
		ticketeer.DefaultTicketCategoryName,
	)
	viper.SetDefault("tickets.delete_delay", ticketeer.DefaultTicketDeleteDelay)
	viper.SetDefault(
		"tickets.issue_max_length",
		ticketeer.DefaultTicketIssueMaxLength,
	)
	viper.SetDefault(
		"tickets.notifier_requests_per_second",
		ticketeer.DefaultNotifierRequestsPerSecond,
	)
	viper.SetDefault("tickets.notifier_burst", ticketeer.DefaultNotifierBurst)
	viper.SetDefault(
		"tickets.notifier_log_level",
		ticketeer.DefaultNotifierLogLevel.String(),
	)

	// OpenAI config
	viper.SetDefault("openai.token", "")
	viper.SetDefault("openai.model", ticketeer.DefaultOpenAIModel)
	viper.SetDefault("openai.log_level", ticketeer.DefaultOpenAILogLevel.String())

	// API config
	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.listen", ticketeer.DefaultAPIListen)
	viper.SetDefault("api.listen_network", "tcp")
	viper.SetDefault("api.log_level", ticketeer.DefaultAPILogLevel.String())
	viper.SetDefault("api.read_timeout", ticketeer.DefaultReadTimeout)
	viper.SetDefault(
		"api.read_header_timeout",
		ticketeer.DefaultReadHeaderTimeout,
	)
	viper.SetDefault("api.write_timeout", ticketeer.DefaultWriteTimeout)
	viper.SetDefault("api.idle_timeout", ticketeer.DefaultIdleTimeout)
	viper.SetDefault("api.development", false)

	envPrefix := os.Getenv(ticketeer.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = ticketeer.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	for _, key := range []string{
		"log_level",
		"database_log_level",
		"discord.log_level",
		"discord.discordgo_log_level",
		"tickets.notifier_log_level",
		"openai.log_level",
		"api.log_level",
	} {
		logLevelVar, err := levelStringToLevelVar(viper.GetString(key))
		if err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
		viper.Set(key, logLevelVar)
	}
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(lvl))
	return level, err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Config file to use",
	)
}
