package ticketeer

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// InteractionHandler is an interface for responding to discord
// interactions, so the command controllers don't need to care whether
// they're talking to a real gateway session or a test stub.
type InteractionHandler interface {
	// Respond sends the initial response to an interaction.
	Respond(
		ctx context.Context,
		response *discordgo.InteractionResponse,
		opts ...discordgo.RequestOption,
	) error

	// Edit updates the original interaction response.
	Edit(
		ctx context.Context,
		response *discordgo.WebhookEdit,
		opts ...discordgo.RequestOption,
	)

	// GetInteraction returns the discord interaction event being handled
	GetInteraction() *discordgo.InteractionCreate

	Logger() *slog.Logger
}

// GatewayHandler is the InteractionHandler implementation used for
// interactions received over the discord gateway websocket connection.
type GatewayHandler struct {
	session     DiscordSessionHandler
	interaction *discordgo.InteractionCreate
	logger      *slog.Logger
}

func newGatewayHandler(
	session DiscordSessionHandler,
	interaction *discordgo.InteractionCreate,
	logger *slog.Logger,
) GatewayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return GatewayHandler{
		session:     session,
		interaction: interaction,
		logger: logger.With(
			slog.Group("interaction", interactionLogAttrs(*interaction)...),
		),
	}
}

func (h GatewayHandler) Logger() *slog.Logger {
	return h.logger
}

func (h GatewayHandler) GetInteraction() *discordgo.InteractionCreate {
	return h.interaction
}

func (h GatewayHandler) Respond(
	_ context.Context,
	response *discordgo.InteractionResponse,
	opts ...discordgo.RequestOption,
) error {
	err := h.session.InteractionRespond(h.interaction.Interaction, response, opts...)
	if err != nil {
		h.logger.Error(
			"error responding to interaction",
			tint.Err(err),
			"response", response,
		)
	}
	return err
}

func (h GatewayHandler) Edit(
	_ context.Context,
	response *discordgo.WebhookEdit,
	opts ...discordgo.RequestOption,
) {
	_, err := h.session.InteractionResponseEdit(
		h.interaction.Interaction,
		response,
		opts...,
	)
	if err != nil {
		h.logger.Error("error editing interaction response", tint.Err(err))
	}
}

// ephemeralResponse responds to the interaction with an ephemeral message
// only visible to the invoking user.
func ephemeralResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: truncate(content, discordMaxMessageLength),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

// deferredEphemeralResponse acknowledges the interaction so a followup
// edit can be sent after slower work (channel creation, role changes).
func deferredEphemeralResponse() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}
}
