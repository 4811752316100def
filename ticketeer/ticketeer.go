// Package ticketeer implements a Discord support-ticket and
// reaction-role bot.
//
// Each support request gets a dedicated private channel, tracked in a
// JSON document on disk through an active/closed lifecycle. Reaction
// role panels let members self-assign roles via buttons or a select
// menu. All component interactions are dispatched statelessly from the
// component custom ID, so panels and ticket buttons keep working across
// restarts with no per-message state.
package ticketeer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Ticketeer is the top-level bot: the gateway connection, the ticket
// and reaction-role registries, and the supporting services around
// them.
type Ticketeer struct {
	config        *Config
	logger        *slog.Logger
	logHandler    slog.Handler
	discord       *Discord
	db            *gorm.DB
	store         *Store
	tickets       *TicketRegistry
	reactionRoles *ReactionRoleRegistry
	ticketManager *TicketManager
	roleManager   *ReactionRoleManager
	notifier      *Notifier
	triage        *Triage
	api           *API
}

// New creates a new Ticketeer bot from the given config.
func New(config *Config) (*Ticketeer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Discord == nil || config.Discord.Token == "" {
		return nil, errors.New("discord token is required")
	}
	if config.Discord.ApplicationID == "" {
		return nil, errors.New("discord application ID is required")
	}

	logHandler := newLogHandler(os.Stdout, config.LogLevel)
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	t := &Ticketeer{
		config:     config,
		logger:     logger,
		logHandler: logHandler,
	}

	db, err := CreateDB(
		config.DatabaseType,
		config.Database,
		config.DatabaseSlowThreshold,
		newLogHandler(os.Stdout, config.DatabaseLogLevel),
	)
	if err != nil {
		return nil, err
	}
	t.db = db

	store, err := NewStore(config.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing data dir: %w", err)
	}
	t.store = store

	t.tickets, err = NewTicketRegistry(store, logger)
	if err != nil {
		return nil, fmt.Errorf("error loading ticket registry: %w", err)
	}
	t.reactionRoles, err = NewReactionRoleRegistry(store, logger)
	if err != nil {
		return nil, fmt.Errorf("error loading reaction role registry: %w", err)
	}

	config.Discord.httpClient = config.HTTPClient
	t.discord = newDiscord(config.Discord)
	t.discord.logger = slog.New(
		newLogHandler(os.Stdout, config.Discord.LogLevel),
	).With(loggerNameKey, "discord")
	t.discord.bot = t

	session, err := t.discord.newSession()
	if err != nil {
		return nil, err
	}
	t.discord.session = session

	t.notifier = NewNotifier(
		*config.Tickets,
		config.HTTPClient,
		slog.New(newLogHandler(os.Stdout, config.Tickets.NotifierLogLevel)),
	)
	t.triage = NewTriage(
		*config.OpenAI,
		slog.New(newLogHandler(os.Stdout, config.OpenAI.LogLevel)),
	)

	t.ticketManager = NewTicketManager(
		*config.Tickets,
		t.tickets,
		session,
		t.notifier,
		t.triage,
		db,
		config.Discord.ApplicationID,
		logger,
	)
	t.roleManager = NewReactionRoleManager(t.reactionRoles, session, logger)

	if config.API != nil && config.API.Enabled {
		t.api = NewAPI(
			*config.API,
			t.tickets,
			t.reactionRoles,
			db,
			slog.New(newLogHandler(os.Stdout, config.API.LogLevel)),
		)
	}

	return t, nil
}

// Tickets returns the ticket registry.
func (t *Ticketeer) Tickets() *TicketRegistry {
	return t.tickets
}

// ReactionRoles returns the reaction role registry.
func (t *Ticketeer) ReactionRoles() *ReactionRoleRegistry {
	return t.reactionRoles
}

// Run starts the bot and blocks until ctx is canceled, then shuts down
// gracefully.
func (t *Ticketeer) Run(ctx context.Context) error {
	ctx = WithLogger(ctx, t.logger)

	startupCtx, startupCancel := context.WithTimeout(ctx, t.config.StartupTimeout)
	defer startupCancel()

	if err := t.startDiscord(ctx, startupCtx); err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)

	if t.api != nil {
		srv := t.api.Server()
		listener, err := net.Listen(
			t.config.API.ListenNetwork,
			t.config.API.Listen,
		)
		if err != nil {
			_ = t.discord.session.Close()
			return fmt.Errorf("error listening on %s: %w", t.config.API.Listen, err)
		}
		t.logger.Info("api listening", "address", t.config.API.Listen)
		eg.Go(
			func() error {
				serveErr := srv.Serve(listener)
				if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
					return serveErr
				}
				return nil
			},
		)
		eg.Go(
			func() error {
				<-egCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(
					context.Background(),
					t.config.ShutdownTimeout,
				)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			},
		)
	}

	eg.Go(
		func() error {
			<-egCtx.Done()
			t.logger.Info("shutting down")

			done := make(chan struct{})
			go func() {
				t.ticketManager.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(t.config.ShutdownTimeout):
				t.logger.Warn("timed out waiting for pending deletions")
			}

			return t.discord.session.Close()
		},
	)

	err := eg.Wait()
	t.logger.Info("shutdown complete")
	return err
}

// startDiscord opens the gateway connection, registers commands, and
// reconciles persisted panel state. Interaction handlers are bound to
// ctx, which must outlive the gateway session; startupCtx only bounds
// the startup-time calls.
func (t *Ticketeer) startDiscord(ctx context.Context, startupCtx context.Context) error {
	session := t.discord.session
	t.discord.discordgoRemoveHandlerFuncs = append(
		t.discord.discordgoRemoveHandlerFuncs,
		session.AddHandler(t.discord.handlerReady()),
		session.AddHandler(t.discord.handlerConnect()),
		session.AddHandler(t.discord.handlerDisconnect()),
		session.AddHandler(t.handlerInteractionCreate(ctx)),
	)

	if err := session.Open(); err != nil {
		return fmt.Errorf("error opening discord session: %w", err)
	}

	if _, err := t.discord.registerCommands(*t.config.Tickets); err != nil {
		_ = session.Close()
		return fmt.Errorf("error registering commands: %w", err)
	}

	if t.config.Discord.CustomStatus != "" {
		if err := t.discord.updateCustomStatus(t.config.Discord.CustomStatus); err != nil {
			t.logger.Warn("error setting custom status", tint.Err(err))
		}
	}

	if err := t.notifier.Validate(startupCtx); err != nil {
		t.logger.Warn("webhook validation failed", tint.Err(err))
	}

	t.roleManager.ReattachPanels(startupCtx)
	return nil
}

// handlerInteractionCreate returns the gateway handler for interaction
// events. The parent context only scopes logging and cancellation; each
// interaction is handled on the event goroutine.
func (t *Ticketeer) handlerInteractionCreate(ctx context.Context) func(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handler := newGatewayHandler(t.discord.session, i, t.logger)
		t.handleInteraction(ctx, handler)
	}
}

// handleInteraction records and dispatches a single interaction.
func (t *Ticketeer) handleInteraction(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	t.recordInteraction(i)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		t.handleApplicationCommand(ctx, handler)
	case discordgo.InteractionMessageComponent:
		t.handleMessageComponent(ctx, handler)
	case discordgo.InteractionModalSubmit:
		t.handleModalSubmit(ctx, handler)
	default:
		handler.Logger().Warn("unhandled interaction type")
	}
}

func (t *Ticketeer) handleApplicationCommand(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	data := i.ApplicationCommandData()
	switch data.Name {
	case DiscordSlashCommandTicket:
		t.ticketManager.TicketCommand(ctx, handler)
	case DiscordSlashCommandTickets:
		t.ticketManager.TicketsCommand(ctx, handler)
	case DiscordSlashCommandSetupTickets:
		t.ticketManager.SetupTicketsCommand(ctx, handler)
	case DiscordSlashCommandReactionRoleAdd:
		t.roleManager.AddRoleCommand(ctx, handler)
	case DiscordSlashCommandReactionRoleButton:
		t.roleManager.ButtonPanelCommand(ctx, handler)
	case DiscordSlashCommandReactionRoleMenu:
		t.roleManager.MenuPanelCommand(ctx, handler)
	case DiscordSlashCommandReactionRoleList:
		t.roleManager.ListCommand(ctx, handler)
	case DiscordSlashCommandReactionRoleDelete:
		t.roleManager.DeleteCommand(ctx, handler)
	default:
		handler.Logger().Warn("unknown command", "command", data.Name)
	}
}

func (t *Ticketeer) handleMessageComponent(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	customID := i.MessageComponentData().CustomID
	action, args := parseCustomID(customID)

	switch action {
	case customIDCreateTicket:
		t.ticketManager.CreateTicketModal(ctx, handler)
	case customActionCloseTicket:
		if len(args) >= 1 {
			t.ticketManager.CloseTicket(ctx, handler, args[0])
		}
	case customActionClaimTicket:
		if len(args) >= 1 {
			t.ticketManager.ClaimTicket(ctx, handler, args[0])
		}
	case customActionReopenTicket:
		if len(args) >= 1 {
			t.ticketManager.ReopenTicket(ctx, handler, args[0])
		}
	case customActionDeleteTicket:
		if len(args) >= 1 {
			t.ticketManager.DeleteTicket(ctx, handler, args[0])
		}
	case customActionReactionRole:
		// args are [emojiKey, roleID]; the emoji key is display-only
		if len(args) == 2 {
			t.roleManager.ToggleRole(ctx, handler, args[1])
		}
	case customIDReactionSelect:
		t.roleManager.SelectMenuToggle(ctx, handler)
	default:
		handler.Logger().Warn("unknown component", "custom_id", customID)
	}
}

func (t *Ticketeer) handleModalSubmit(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	data := i.ModalSubmitData()
	switch data.CustomID {
	case customIDCreateTicketModal:
		t.ticketManager.TicketModalSubmit(ctx, handler)
	default:
		handler.Logger().Warn("unknown modal", "custom_id", data.CustomID)
	}
}

// recordInteraction writes an InteractionLog audit row for the incoming
// event. Failures are logged and ignored.
func (t *Ticketeer) recordInteraction(i *discordgo.InteractionCreate) {
	if t.db == nil || i == nil {
		return
	}
	row := &InteractionLog{
		InteractionID: i.ID,
		Type:          i.Type.String(),
		GuildID:       i.GuildID,
		ChannelID:     i.ChannelID,
	}
	if user := getDiscordUser(i); user != nil {
		row.UserID = user.ID
		row.Username = user.Username
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		row.CommandName = i.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		row.CustomID = i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		row.CustomID = i.ModalSubmitData().CustomID
	}
	if rv := t.db.Create(row); rv.Error != nil {
		t.logger.Error("error recording interaction", tint.Err(rv.Error))
	}
}
