package ticketeer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
)

// Component custom IDs. Ticket actions carry the ticket ID after a
// colon ("close_ticket:ticket-7") so the component handlers stay
// stateless: any bot instance can act on a button from any uptime.
const (
	customIDCreateTicket      = "create_ticket"
	customIDCreateTicketModal = "create_ticket_modal"
	customIDTicketModalIssue  = "ticket_issue"

	customActionCloseTicket  = "close_ticket"
	customActionClaimTicket  = "claim_ticket"
	customActionDeleteTicket = "delete_ticket"
	customActionReopenTicket = "reopen_ticket"
)

// ErrChannelUnavailable indicates the ticket's backing channel could
// not be fetched. Ticket state operations tolerate this: the registry
// record is authoritative, the channel is not.
var ErrChannelUnavailable = errors.New("ticket channel unavailable")

// ticketActionCustomID encodes a ticket action component custom ID.
func ticketActionCustomID(action string, ticketID string) string {
	return action + ":" + ticketID
}

// parseCustomID splits a component custom ID into its action and
// (up to two) colon-separated arguments.
func parseCustomID(customID string) (action string, args []string) {
	parts := strings.SplitN(customID, ":", 3)
	return parts[0], parts[1:]
}

// TicketManager implements the ticket lifecycle commands and component
// actions.
type TicketManager struct {
	config   TicketConfig
	registry *TicketRegistry
	session  DiscordSessionHandler
	notifier *Notifier
	triage   *Triage
	db       *gorm.DB
	logger   *slog.Logger

	// botUserID is granted access to each ticket channel's overwrites
	botUserID string

	// deleteWG tracks in-flight delayed channel deletions, so Stop (and
	// tests) can wait for them
	deleteWG sync.WaitGroup
}

func NewTicketManager(
	config TicketConfig,
	registry *TicketRegistry,
	session DiscordSessionHandler,
	notifier *Notifier,
	triage *Triage,
	db *gorm.DB,
	botUserID string,
	logger *slog.Logger,
) *TicketManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketManager{
		config:    config,
		registry:  registry,
		session:   session,
		notifier:  notifier,
		triage:    triage,
		db:        db,
		botUserID: botUserID,
		logger:    logger.With(loggerNameKey, "tickets"),
	}
}

// Wait blocks until all pending delayed channel deletions finish.
func (tm *TicketManager) Wait() {
	tm.deleteWG.Wait()
}

// recordEvent writes a TicketEvent audit row. Audit failures are
// logged, never surfaced.
func (tm *TicketManager) recordEvent(
	ticketID string,
	event string,
	userID string,
	channelID string,
	detail string,
) {
	if tm.db == nil {
		return
	}
	rv := tm.db.Create(
		&TicketEvent{
			TicketID:  ticketID,
			Event:     event,
			UserID:    userID,
			ChannelID: channelID,
			Detail:    detail,
		},
	)
	if rv.Error != nil {
		tm.logger.Error(
			"error recording ticket event",
			tint.Err(rv.Error),
			"ticket_id", ticketID,
			"event", event,
		)
	}
}

// memberPermitted reports whether the interaction's member holds the
// given permission bits. Interactions without member data (DMs) are
// never permitted.
func memberPermitted(i *discordgo.InteractionCreate, perm int64) bool {
	if i == nil || i.Member == nil {
		return false
	}
	return i.Member.Permissions&perm == perm
}

// findOrCreateCategory locates the configured ticket channel category,
// creating it if it doesn't exist.
func (tm *TicketManager) findOrCreateCategory(
	guildID string,
) (*discordgo.Channel, error) {
	channels, err := tm.session.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("error listing guild channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory &&
			strings.EqualFold(ch.Name, tm.config.CategoryName) {
			return ch, nil
		}
	}
	category, err := tm.session.GuildChannelCreateComplex(
		guildID, discordgo.GuildChannelCreateData{
			Name: tm.config.CategoryName,
			Type: discordgo.ChannelTypeGuildCategory,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error creating ticket category: %w", err)
	}
	return category, nil
}

// ticketChannelOverwrites builds the permission overwrites for a new
// ticket channel: hidden from the guild, visible to the requester and
// the bot.
func (tm *TicketManager) ticketChannelOverwrites(
	guildID string,
	userID string,
) []*discordgo.PermissionOverwrite {
	memberAllow := int64(
		discordgo.PermissionViewChannel |
			discordgo.PermissionSendMessages |
			discordgo.PermissionReadMessageHistory,
	)
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: int64(discordgo.PermissionViewChannel),
		},
		{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberAllow,
		},
	}
	if tm.botUserID != "" {
		overwrites = append(
			overwrites, &discordgo.PermissionOverwrite{
				ID:    tm.botUserID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: memberAllow | int64(discordgo.PermissionManageChannels),
			},
		)
	}
	return overwrites
}

// openTicketButtons are the components attached to a ticket's intro
// message while the ticket is active.
func openTicketButtons(ticketID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Close Ticket",
					Style:    discordgo.DangerButton,
					CustomID: ticketActionCustomID(customActionCloseTicket, ticketID),
					Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
				},
				discordgo.Button{
					Label:    "Claim Ticket",
					Style:    discordgo.PrimaryButton,
					CustomID: ticketActionCustomID(customActionClaimTicket, ticketID),
					Emoji:    &discordgo.ComponentEmoji{Name: "🙋"},
				},
			},
		},
	}
}

// closedTicketButtons are the components offered once a ticket is
// closed.
func closedTicketButtons(ticketID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Reopen Ticket",
					Style:    discordgo.SuccessButton,
					CustomID: ticketActionCustomID(customActionReopenTicket, ticketID),
					Emoji:    &discordgo.ComponentEmoji{Name: "🔓"},
				},
				discordgo.Button{
					Label:    "Delete Ticket",
					Style:    discordgo.DangerButton,
					CustomID: ticketActionCustomID(customActionDeleteTicket, ticketID),
					Emoji:    &discordgo.ComponentEmoji{Name: "🗑️"},
				},
			},
		},
	}
}

// TicketCommand handles the `/ticket` slash command.
func (tm *TicketManager) TicketCommand(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	options := discordInteractionOptions(i)
	issue := ""
	if opt, ok := options[ticketCommandIssueOption]; ok {
		issue = opt.StringValue()
	}
	tm.createTicket(ctx, handler, issue)
}

// CreateTicketModal responds to the panel's Create Ticket button with a
// modal asking for the issue description.
func (tm *TicketManager) CreateTicketModal(
	ctx context.Context,
	handler InteractionHandler,
) {
	err := handler.Respond(
		ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: &discordgo.InteractionResponseData{
				CustomID: customIDCreateTicketModal,
				Title:    "Create a Ticket",
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{
						Components: []discordgo.MessageComponent{
							discordgo.TextInput{
								CustomID:    customIDTicketModalIssue,
								Label:       "What do you need help with?",
								Style:       discordgo.TextInputParagraph,
								Required:    true,
								MaxLength:   tm.config.IssueMaxLength,
								Placeholder: "Briefly describe your issue",
							},
						},
					},
				},
			},
		},
	)
	if err != nil {
		handler.Logger().Error("error sending ticket modal", tint.Err(err))
	}
}

// TicketModalSubmit handles the modal submission from the Create Ticket
// button.
func (tm *TicketManager) TicketModalSubmit(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	data := i.ModalSubmitData()
	issue := ""
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range actionsRow.Components {
			input, inputOK := c.(*discordgo.TextInput)
			if inputOK && input.CustomID == customIDTicketModalIssue {
				issue = input.Value
			}
		}
	}
	tm.createTicket(ctx, handler, issue)
}

// createTicket is the shared creation path behind `/ticket` and the
// panel modal.
func (tm *TicketManager) createTicket(
	ctx context.Context,
	handler InteractionHandler,
	issue string,
) {
	i := handler.GetInteraction()
	log := handler.Logger()
	user := getDiscordUser(i)
	if user == nil || i.GuildID == "" {
		_ = handler.Respond(
			ctx,
			ephemeralResponse("Tickets can only be created in a server."),
		)
		return
	}

	issue = strings.TrimSpace(issue)
	if issue == "" {
		_ = handler.Respond(
			ctx,
			ephemeralResponse("Please describe your issue."),
		)
		return
	}
	issue = truncate(issue, tm.config.IssueMaxLength)

	// Fast duplicate check before any Discord round-trips. Passing here
	// doesn't reserve anything: CreateActive re-checks under the lock.
	if existing, ok := tm.registry.ActiveTicketFor(user.ID); ok {
		ticket, err := tm.registry.Get(existing)
		msg := fmt.Sprintf("You already have an active ticket: **%s**", existing)
		if err == nil {
			msg = fmt.Sprintf(
				"You already have an active ticket: <#%s>", ticket.ChannelID,
			)
		}
		_ = handler.Respond(ctx, ephemeralResponse(msg))
		return
	}

	if err := handler.Respond(ctx, deferredEphemeralResponse()); err != nil {
		return
	}

	category, err := tm.findOrCreateCategory(i.GuildID)
	if err != nil {
		log.Error("error finding ticket category", tint.Err(err))
		tm.editErr(ctx, handler, "Something went wrong creating your ticket.")
		return
	}

	ticketID, err := tm.registry.Allocate()
	if err != nil {
		log.Error("error allocating ticket id", tint.Err(err))
		tm.editErr(ctx, handler, "Something went wrong creating your ticket.")
		return
	}

	channel, err := tm.session.GuildChannelCreateComplex(
		i.GuildID, discordgo.GuildChannelCreateData{
			Name:                 ticketID,
			Type:                 discordgo.ChannelTypeGuildText,
			Topic:                ellipsize(issue, 1024),
			ParentID:             category.ID,
			PermissionOverwrites: tm.ticketChannelOverwrites(i.GuildID, user.ID),
		},
	)
	if err != nil {
		// The counter was already advanced; the gap in ticket numbers
		// is intentional, IDs are never reused.
		log.Error("error creating ticket channel", tint.Err(err))
		tm.editErr(ctx, handler, "Something went wrong creating your ticket.")
		return
	}

	ticket, err := tm.registry.CreateActive(ticketID, user.ID, channel.ID, issue)
	if err != nil {
		log.Error("error registering ticket", tint.Err(err), "ticket_id", ticketID)
		tm.deleteChannelNow(channel.ID)
		if errors.Is(err, ErrDuplicateActiveTicket) {
			tm.editErr(ctx, handler, "You already have an active ticket.")
			return
		}
		tm.editErr(ctx, handler, "Something went wrong creating your ticket.")
		return
	}

	_, err = tm.session.ChannelMessageSendComplex(
		channel.ID, &discordgo.MessageSend{
			Content: fmt.Sprintf("<@%s>", user.ID),
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       fmt.Sprintf("Ticket: %s", ticketID),
					Description: issue,
					Color:       notifyColorCreated,
					Fields: []*discordgo.MessageEmbedField{
						ticketEmbedField("Opened By", fmt.Sprintf("<@%s>", user.ID)),
					},
					Timestamp: ticket.CreatedAt.Format(time.RFC3339),
				},
			},
			Components: openTicketButtons(ticketID),
		},
	)
	if err != nil {
		log.Error(
			"error sending ticket intro message",
			tint.Err(err),
			"ticket_id", ticketID,
		)
	}

	content := fmt.Sprintf("Your ticket has been created: <#%s>", channel.ID)
	handler.Edit(ctx, &discordgo.WebhookEdit{Content: &content})

	log.Info("created ticket", "ticket_id", ticketID, "ticket", ticket)
	tm.recordEvent(ticketID, TicketEventCreated, user.ID, channel.ID, issue)

	summary := ""
	if tm.triage.Enabled() {
		summary = tm.triage.Summarize(ctx, issue)
	}
	tm.notifier.TicketCreated(ctx, ticketID, ticket, summary)
}

func (tm *TicketManager) editErr(
	ctx context.Context,
	handler InteractionHandler,
	msg string,
) {
	handler.Edit(ctx, &discordgo.WebhookEdit{Content: &msg})
}

// TicketsCommand handles `/tickets`, listing active tickets.
func (tm *TicketManager) TicketsCommand(
	ctx context.Context,
	handler InteractionHandler,
) {
	ids := tm.registry.ActiveTicketIDs()
	if len(ids) == 0 {
		_ = handler.Respond(ctx, ephemeralResponse("There are no active tickets."))
		return
	}

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		ticket, err := tm.registry.Get(id)
		if err != nil {
			continue
		}
		line := fmt.Sprintf(
			"**%s** — <@%s> in <#%s>", id, ticket.UserID, ticket.ChannelID,
		)
		if ticket.Claimed() {
			line += fmt.Sprintf(" (claimed by <@%s>)", ticket.ClaimedBy)
		}
		lines = append(lines, line)
	}

	err := handler.Respond(
		ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Flags: discordgo.MessageFlagsEphemeral,
				Embeds: []*discordgo.MessageEmbed{
					{
						Title:       fmt.Sprintf("Active Tickets (%d)", len(lines)),
						Description: truncate(strings.Join(lines, "\n"), 4096),
						Color:       notifyColorCreated,
					},
				},
			},
		},
	)
	if err != nil {
		handler.Logger().Error("error listing tickets", tint.Err(err))
	}
}

// SetupTicketsCommand handles `/setup-tickets`: ensures the ticket
// category exists and posts the Create Ticket panel in the current
// channel.
func (tm *TicketManager) SetupTicketsCommand(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	log := handler.Logger()

	if err := handler.Respond(ctx, deferredEphemeralResponse()); err != nil {
		return
	}

	if _, err := tm.findOrCreateCategory(i.GuildID); err != nil {
		log.Error("error setting up ticket category", tint.Err(err))
		tm.editErr(ctx, handler, "Something went wrong setting up tickets.")
		return
	}

	_, err := tm.session.ChannelMessageSendComplex(
		i.ChannelID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title: "Need help?",
					Description: "Click the button below to create a " +
						"support ticket. A private channel will be opened " +
						"for you and our staff.",
					Color: notifyColorCreated,
				},
			},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Create Ticket",
							Style:    discordgo.PrimaryButton,
							CustomID: customIDCreateTicket,
							Emoji:    &discordgo.ComponentEmoji{Name: "🎫"},
						},
					},
				},
			},
		},
	)
	if err != nil {
		log.Error("error sending ticket panel", tint.Err(err))
		tm.editErr(ctx, handler, "Something went wrong setting up tickets.")
		return
	}

	tm.editErr(ctx, handler, "Ticket system is ready.")
}

// CloseTicket handles the Close Ticket button.
func (tm *TicketManager) CloseTicket(
	ctx context.Context,
	handler InteractionHandler,
	ticketID string,
) {
	i := handler.GetInteraction()
	log := handler.Logger().With("ticket_id", ticketID)
	user := getDiscordUser(i)
	if user == nil {
		return
	}

	existing, err := tm.registry.Get(ticketID)
	if err != nil {
		_ = handler.Respond(ctx, ephemeralResponse("That ticket no longer exists."))
		return
	}
	if existing.UserID != user.ID &&
		!memberPermitted(i, int64(discordgo.PermissionManageChannels)) {
		_ = handler.Respond(
			ctx,
			ephemeralResponse("Only the ticket owner or staff can close this ticket."),
		)
		return
	}

	ticket, err := tm.registry.MoveToClosed(ticketID, user.ID)
	if err != nil {
		if errors.Is(err, ErrTicketNotActive) {
			_ = handler.Respond(
				ctx, ephemeralResponse("This ticket is already closed."),
			)
			return
		}
		log.Error("error closing ticket", tint.Err(err))
		_ = handler.Respond(
			ctx, ephemeralResponse("Something went wrong closing this ticket."),
		)
		return
	}

	// Lock the requester out of sending; the channel stays visible so
	// the history can be reviewed until deletion.
	if permErr := tm.session.ChannelPermissionSet(
		ticket.ChannelID,
		ticket.UserID,
		discordgo.PermissionOverwriteTypeMember,
		int64(discordgo.PermissionViewChannel|discordgo.PermissionReadMessageHistory),
		int64(discordgo.PermissionSendMessages),
	); permErr != nil {
		log.Warn("error locking ticket channel", tint.Err(permErr))
	}

	err = handler.Respond(
		ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{
					{
						Title:       "Ticket Closed",
						Description: fmt.Sprintf("Closed by <@%s>", user.ID),
						Color:       notifyColorClosed,
					},
				},
				Components: closedTicketButtons(ticketID),
			},
		},
	)
	if err != nil {
		log.Error("error responding to close", tint.Err(err))
	}

	log.Info("closed ticket", "ticket", ticket)
	tm.recordEvent(ticketID, TicketEventClosed, user.ID, ticket.ChannelID, "")
	tm.notifier.TicketClosed(ctx, ticketID, ticket)
}

// ClaimTicket handles the Claim Ticket button. Claims follow
// last-claim-wins: re-claiming reassigns with no error.
func (tm *TicketManager) ClaimTicket(
	ctx context.Context,
	handler InteractionHandler,
	ticketID string,
) {
	i := handler.GetInteraction()
	log := handler.Logger().With("ticket_id", ticketID)
	user := getDiscordUser(i)
	if user == nil {
		return
	}
	if !memberPermitted(i, int64(discordgo.PermissionManageChannels)) {
		_ = handler.Respond(
			ctx, ephemeralResponse("Only staff can claim tickets."),
		)
		return
	}

	ticket, err := tm.registry.Claim(ticketID, user.ID)
	if err != nil {
		if errors.Is(err, ErrTicketNotActive) || errors.Is(err, ErrTicketNotFound) {
			_ = handler.Respond(
				ctx, ephemeralResponse("This ticket can no longer be claimed."),
			)
			return
		}
		log.Error("error claiming ticket", tint.Err(err))
		_ = handler.Respond(
			ctx, ephemeralResponse("Something went wrong claiming this ticket."),
		)
		return
	}

	err = handler.Respond(
		ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{
					{
						Title:       "Ticket Claimed",
						Description: fmt.Sprintf("<@%s> will be helping you.", user.ID),
						Color:       notifyColorClaimed,
					},
				},
			},
		},
	)
	if err != nil {
		log.Error("error responding to claim", tint.Err(err))
	}

	log.Info("claimed ticket", "ticket", ticket)
	tm.recordEvent(ticketID, TicketEventClaimed, user.ID, ticket.ChannelID, "")
	tm.notifier.TicketClaimed(ctx, ticketID, ticket)
}

// ReopenTicket handles the Reopen Ticket button on a closed ticket.
func (tm *TicketManager) ReopenTicket(
	ctx context.Context,
	handler InteractionHandler,
	ticketID string,
) {
	i := handler.GetInteraction()
	log := handler.Logger().With("ticket_id", ticketID)
	user := getDiscordUser(i)
	if user == nil {
		return
	}

	existing, err := tm.registry.Get(ticketID)
	if err != nil {
		_ = handler.Respond(ctx, ephemeralResponse("That ticket no longer exists."))
		return
	}
	if existing.UserID != user.ID &&
		!memberPermitted(i, int64(discordgo.PermissionManageChannels)) {
		_ = handler.Respond(
			ctx,
			ephemeralResponse("Only the ticket owner or staff can reopen this ticket."),
		)
		return
	}

	ticket, err := tm.registry.MoveToActive(ticketID, user.ID)
	if err != nil {
		if errors.Is(err, ErrTicketNotClosed) {
			_ = handler.Respond(
				ctx, ephemeralResponse("This ticket is already open."),
			)
			return
		}
		if errors.Is(err, ErrDuplicateActiveTicket) {
			_ = handler.Respond(
				ctx,
				ephemeralResponse(
					"The ticket owner already has another active ticket.",
				),
			)
			return
		}
		log.Error("error reopening ticket", tint.Err(err))
		_ = handler.Respond(
			ctx, ephemeralResponse("Something went wrong reopening this ticket."),
		)
		return
	}

	if permErr := tm.session.ChannelPermissionSet(
		ticket.ChannelID,
		ticket.UserID,
		discordgo.PermissionOverwriteTypeMember,
		int64(
			discordgo.PermissionViewChannel|
				discordgo.PermissionSendMessages|
				discordgo.PermissionReadMessageHistory,
		),
		0,
	); permErr != nil {
		log.Warn("error unlocking ticket channel", tint.Err(permErr))
	}

	err = handler.Respond(
		ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{
					{
						Title:       "Ticket Reopened",
						Description: fmt.Sprintf("Reopened by <@%s>", user.ID),
						Color:       notifyColorReopened,
					},
				},
				Components: openTicketButtons(ticketID),
			},
		},
	)
	if err != nil {
		log.Error("error responding to reopen", tint.Err(err))
	}

	log.Info("reopened ticket", "ticket", ticket)
	tm.recordEvent(ticketID, TicketEventReopened, user.ID, ticket.ChannelID, "")
	tm.notifier.TicketReopened(ctx, ticketID, ticket)
}

// DeleteTicket handles the Delete Ticket button on a closed ticket: the
// registry record is removed immediately, then the backing channel is
// deleted after a short grace period so the response can render. The
// pending deletion is not persisted; a restart inside the window leaves
// the channel behind.
func (tm *TicketManager) DeleteTicket(
	ctx context.Context,
	handler InteractionHandler,
	ticketID string,
) {
	i := handler.GetInteraction()
	log := handler.Logger().With("ticket_id", ticketID)
	user := getDiscordUser(i)
	if user == nil {
		return
	}
	if !memberPermitted(i, int64(discordgo.PermissionManageChannels)) {
		_ = handler.Respond(
			ctx, ephemeralResponse("Only staff can delete tickets."),
		)
		return
	}

	ticket, err := tm.registry.Remove(ticketID)
	if err != nil {
		if errors.Is(err, ErrTicketNotClosed) {
			_ = handler.Respond(
				ctx,
				ephemeralResponse("Tickets must be closed before they can be deleted."),
			)
			return
		}
		if errors.Is(err, ErrTicketNotFound) {
			_ = handler.Respond(
				ctx, ephemeralResponse("That ticket no longer exists."),
			)
			return
		}
		log.Error("error deleting ticket", tint.Err(err))
		_ = handler.Respond(
			ctx, ephemeralResponse("Something went wrong deleting this ticket."),
		)
		return
	}

	err = handler.Respond(
		ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{
					{
						Title: "Ticket Deleted",
						Description: fmt.Sprintf(
							"This channel will be deleted in %d seconds.",
							int(tm.config.DeleteDelay.Seconds()),
						),
						Color: notifyColorDeleted,
					},
				},
			},
		},
	)
	if err != nil {
		log.Error("error responding to delete", tint.Err(err))
	}

	tm.deleteWG.Add(1)
	go func() {
		defer tm.deleteWG.Done()
		timer := time.NewTimer(tm.config.DeleteDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		tm.deleteChannelNow(ticket.ChannelID)
	}()

	log.Info("deleted ticket", "ticket", ticket)
	tm.recordEvent(ticketID, TicketEventDeleted, user.ID, ticket.ChannelID, "")
	tm.notifier.TicketDeleted(ctx, ticketID, user.ID)
}

// deleteChannelNow deletes a channel, tolerating its absence.
func (tm *TicketManager) deleteChannelNow(channelID string) {
	if channelID == "" {
		return
	}
	if _, err := tm.session.ChannelDelete(channelID); err != nil {
		tm.logger.Warn(
			"error deleting ticket channel",
			tint.Err(fmt.Errorf("%w: %w", ErrChannelUnavailable, err)),
			"channel_id", channelID,
		)
	}
}
