//nolint:lll // struct tags can't be split
package ticketeer

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	EnvvarSetEnvPrefix = "TICKETEER_ENV_PREFIX"
	DefaultEnvPrefix   = "TKT"

	DefaultDatabaseType = "sqlite"
	DefaultDatabase     = "ticketeer.sqlite3"
	DefaultDataDir      = "data"

	DefaultLogLevel          = slog.LevelInfo
	DefaultDiscordLogLevel   = slog.LevelWarn
	DefaultDiscordgoLogLevel = slog.LevelWarn
	DefaultDatabaseLogLevel  = slog.LevelInfo
	DefaultAPILogLevel       = slog.LevelInfo
	DefaultNotifierLogLevel  = slog.LevelInfo
	DefaultOpenAILogLevel    = slog.LevelInfo

	DefaultStartupTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 60 * time.Second

	DefaultDatabaseSlowThreshold = 200 * time.Millisecond

	DefaultAPIListen         = "127.0.0.1:5000"
	defaultListenNetwork     = "tcp"
	DefaultReadTimeout       = 5 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 30 * time.Second

	// DefaultTicketCategoryName is the name of the Discord channel category
	// ticket channels are created under.
	DefaultTicketCategoryName = "Tickets"

	// DefaultTicketDeleteDelay is how long to wait, after responding to a
	// delete action, before actually deleting the backing ticket channel.
	// The delay exists so the 'deleting' message has a chance to render.
	DefaultTicketDeleteDelay = 5 * time.Second

	DefaultTicketIssueMaxLength = 1000

	// DefaultNotifierRequestsPerSecond limits outbound webhook notifications.
	DefaultNotifierRequestsPerSecond = 1
	DefaultNotifierBurst             = 5

	DefaultOpenAIModel = "gpt-4o-mini"

	DefaultDiscordGatewayIntent  = discordgo.IntentsAllWithoutPrivileged
	DefaultDiscordCustomStatus   = "/ticket for support!"
	DefaultDiscordStartupMessage = "I'm here!"

	discordMaxMessageLength = 2000
)

// Config is the top-level configuration for the bot, loaded by the
// cmd package via viper.
type Config struct {
	// Database connection string, or SQLite file path
	Database string `yaml:"database" mapstructure:"database" json:"database"`

	// DatabaseType specifies the type of database, either 'sqlite' or 'postgres'
	DatabaseType string `yaml:"database_type" mapstructure:"database_type" json:"database_type" binding:"oneof=sqlite postgres"`

	// DatabaseLogLevel sets the log level for database operations
	DatabaseLogLevel *slog.LevelVar `yaml:"database_log_level" mapstructure:"database_log_level" json:"database_log_level"`

	// DatabaseSlowThreshold is the duration threshold for identifying slow database queries
	DatabaseSlowThreshold time.Duration `yaml:"database_slow_threshold" mapstructure:"database_slow_threshold" json:"database_slow_threshold"`

	// DataDir is the directory holding the JSON documents for the ticket
	// and reaction-role registries
	DataDir string `yaml:"data_dir" mapstructure:"data_dir" json:"data_dir"`

	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// StartupTimeout sets a limit on the amount of time the bot has to
	// initialize. If this is passed, the bot will abort startup.
	StartupTimeout time.Duration `yaml:"startup_timeout" mapstructure:"startup_timeout" json:"startup_timeout"`

	// ShutdownTimeout is the time to allow for a graceful shutdown. After this
	// elapses, the bot will force close all connections and exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	// Discord configures aspects of the Discord bot itself
	Discord *DiscordConfig `yaml:"discord" mapstructure:"discord" json:"discord"`

	// Tickets configures the ticket system
	Tickets *TicketConfig `yaml:"tickets" mapstructure:"tickets" json:"tickets"`

	// OpenAI configures the optional triage summarizer
	OpenAI *OpenAIConfig `yaml:"openai" mapstructure:"openai" json:"openai"`

	// API configures the read-only status API server
	API *APIConfig `yaml:"api" mapstructure:"api" json:"api"`

	HTTPClient *http.Client `log:"[redacted]"`
}

func (c Config) LogValue() slog.Value {
	return structToSlogValue(c)
}

// DiscordConfig configures the discord bot itself.
//
//nolint:lll // can't break tags
type DiscordConfig struct {
	// Discord bot token (from the 'Bot' tab in the discord dev portal)
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required"`

	// Discord application ID (from the 'General Information' tab in the discord dev portal)
	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id" binding:"required"`

	// GuildID specifies the guild ID used when registering slash commands.
	// Leave empty for commands to be registered as global.
	GuildID string `yaml:"guild_id" mapstructure:"guild_id" json:"guild_id"`

	// Base discord logging level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Log level for the `discordgo` library's logger
	DiscordGoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`

	// NotificationChannelID, if set, is the channel the bot announces
	// itself in whenever it connects to the gateway.
	NotificationChannelID string `yaml:"notification_channel_id" mapstructure:"notification_channel_id" json:"notification_channel_id"`

	// StartupMessage is the message sent to NotificationChannelID on connect.
	StartupMessage string `yaml:"startup_message" mapstructure:"startup_message" json:"startup_message"`

	// CustomStatus is the bot's presence status text.
	CustomStatus string `yaml:"custom_status" mapstructure:"custom_status" json:"custom_status"`

	// Discord gateway intents. See: https://discord.com/developers/docs/topics/gateway#gateway-intents
	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	httpClient *http.Client
}

// TicketConfig configures the ticket lifecycle system.
//
//nolint:lll // can't break tags
type TicketConfig struct {
	// WebhookURL is a Discord webhook to send ticket event notifications
	// to. Notifications are best-effort: failures are logged, never
	// surfaced to the user, and never block a state transition.
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url" json:"webhook_url" log:"[redacted]"`

	// CategoryName is the Discord channel category ticket channels are
	// created under. The /setup-tickets command creates it if missing.
	CategoryName string `yaml:"category_name" mapstructure:"category_name" json:"category_name"`

	// DeleteDelay is the grace period between responding to a delete
	// action and deleting the backing channel. Not persisted: a restart
	// during the window drops the pending deletion.
	DeleteDelay time.Duration `yaml:"delete_delay" mapstructure:"delete_delay" json:"delete_delay"`

	// IssueMaxLength caps the issue description length on the /ticket
	// command and the creation modal.
	IssueMaxLength int `yaml:"issue_max_length" mapstructure:"issue_max_length" json:"issue_max_length"`

	// NotifierRequestsPerSecond rate-limits outbound webhook notifications.
	NotifierRequestsPerSecond float64 `yaml:"notifier_requests_per_second" mapstructure:"notifier_requests_per_second" json:"notifier_requests_per_second"`

	// NotifierBurst is the webhook notifier's rate limiter burst size.
	NotifierBurst int `yaml:"notifier_burst" mapstructure:"notifier_burst" json:"notifier_burst"`

	// NotifierLogLevel sets the webhook notifier's log level.
	NotifierLogLevel *slog.LevelVar `yaml:"notifier_log_level" mapstructure:"notifier_log_level" json:"notifier_log_level"`
}

// OpenAIConfig configures the optional OpenAI-backed triage summarizer.
// If Token is empty, the summarizer is disabled and webhook notifications
// carry the raw issue text.
type OpenAIConfig struct {
	// OpenAI API token
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]"`

	// Model used for summarization
	Model string `yaml:"model" mapstructure:"model" json:"model"`

	// OpenAI base log level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// APIConfig configures the read-only status API server.
//
//nolint:lll // can't break tags
type APIConfig struct {
	// Enabled determines whether the status API is served at all.
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// The address and port on which the server should listen (e.g., "127.0.0.1:5000").
	Listen string `yaml:"listen" mapstructure:"listen" json:"listen" binding:"required_if=Enabled true,hostname|filepath"`

	// The network type for listening (e.g., "tcp", "tcp4", "tcp6", "unix").
	ListenNetwork string `yaml:"listen_network" mapstructure:"listen_network" json:"listen_network" binding:"required_if=Enabled true,oneof=tcp tcp4 tcp6 unix"`

	// The logging level for the API server.
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout"`

	// Amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout" json:"read_header_timeout"`

	// Maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" json:"write_timeout"`

	// Maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" json:"idle_timeout"`

	// Development toggles gin debug mode.
	Development bool `yaml:"development" mapstructure:"development" json:"development"`
}

// DefaultConfig returns a Config with all default settings populated
func DefaultConfig() *Config {
	mainLogLevel := &slog.LevelVar{}
	discordLogLevel := &slog.LevelVar{}
	discordgoLogLevel := &slog.LevelVar{}
	dbLogLevel := &slog.LevelVar{}
	apiLogLevel := &slog.LevelVar{}
	notifierLogLevel := &slog.LevelVar{}
	openaiLogLevel := &slog.LevelVar{}

	mainLogLevel.Set(DefaultLogLevel)
	discordLogLevel.Set(DefaultDiscordLogLevel)
	discordgoLogLevel.Set(DefaultDiscordgoLogLevel)
	dbLogLevel.Set(DefaultDatabaseLogLevel)
	apiLogLevel.Set(DefaultAPILogLevel)
	notifierLogLevel.Set(DefaultNotifierLogLevel)
	openaiLogLevel.Set(DefaultOpenAILogLevel)

	return &Config{
		Database:              DefaultDatabase,
		DatabaseType:          DefaultDatabaseType,
		DatabaseLogLevel:      dbLogLevel,
		DatabaseSlowThreshold: DefaultDatabaseSlowThreshold,
		DataDir:               DefaultDataDir,
		LogLevel:              mainLogLevel,
		StartupTimeout:        DefaultStartupTimeout,
		ShutdownTimeout:       DefaultShutdownTimeout,
		Discord: &DiscordConfig{
			LogLevel:          discordLogLevel,
			DiscordGoLogLevel: discordgoLogLevel,
			GatewayIntents:    DefaultDiscordGatewayIntent,
			StartupMessage:    DefaultDiscordStartupMessage,
			CustomStatus:      DefaultDiscordCustomStatus,
		},
		Tickets: &TicketConfig{
			CategoryName:              DefaultTicketCategoryName,
			DeleteDelay:               DefaultTicketDeleteDelay,
			IssueMaxLength:            DefaultTicketIssueMaxLength,
			NotifierRequestsPerSecond: DefaultNotifierRequestsPerSecond,
			NotifierBurst:             DefaultNotifierBurst,
			NotifierLogLevel:          notifierLogLevel,
		},
		OpenAI: &OpenAIConfig{
			Model:    DefaultOpenAIModel,
			LogLevel: openaiLogLevel,
		},
		API: &APIConfig{
			Listen:            DefaultAPIListen,
			ListenNetwork:     defaultListenNetwork,
			LogLevel:          apiLogLevel,
			ReadTimeout:       DefaultReadTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}
}
