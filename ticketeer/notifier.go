package ticketeer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"golang.org/x/time/rate"
)

// Embed colors for ticket event notifications.
const (
	notifyColorCreated  = 0x3498db
	notifyColorClaimed  = 0x9b59b6
	notifyColorClosed   = 0xe74c3c
	notifyColorReopened = 0x2ecc71
	notifyColorDeleted  = 0x95a5a6
)

// Notifier posts ticket lifecycle notifications to a Discord webhook.
// Notifications are best-effort: a failed or rate-limited send is
// logged and dropped, and never blocks or fails the ticket operation
// that triggered it.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewNotifier(
	config TicketConfig,
	httpClient *http.Client,
	logger *slog.Logger,
) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{
		webhookURL: config.WebhookURL,
		httpClient: httpClient,
		limiter: rate.NewLimiter(
			rate.Limit(config.NotifierRequestsPerSecond),
			config.NotifierBurst,
		),
		logger: logger.With(loggerNameKey, "notifier"),
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

// Validate checks that the configured webhook exists, via a GET request
// to the webhook URL. Called once at startup so a bad URL is surfaced
// early rather than on the first ticket event.
func (n *Notifier) Validate(ctx context.Context) error {
	if !n.Enabled() {
		return nil
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		n.webhookURL,
		nil,
	)
	if err != nil {
		return fmt.Errorf("error creating webhook request: %w", err)
	}
	rv, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error validating webhook: %w", err)
	}
	_ = rv.Body.Close()
	if rv.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook validation failed: %s", rv.Status)
	}
	return nil
}

// Send posts the given embed to the webhook, subject to the rate limit.
func (n *Notifier) Send(ctx context.Context, embed *discordgo.MessageEmbed) {
	if !n.Enabled() {
		return
	}
	log := n.logger.With("embed_title", embed.Title)
	if !n.limiter.Allow() {
		log.Warn("notification dropped (rate limited)")
		return
	}

	payload, err := json.Marshal(discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		log.Error("error marshaling webhook payload", tint.Err(err))
		return
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.webhookURL,
		bytes.NewReader(payload),
	)
	if err != nil {
		log.Error("error creating webhook request", tint.Err(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	rv, err := n.httpClient.Do(req)
	if err != nil {
		log.Error("error sending webhook notification", tint.Err(err))
		return
	}
	_ = rv.Body.Close()
	if rv.StatusCode >= http.StatusBadRequest {
		log.Error(
			"webhook notification rejected",
			"status", rv.Status,
		)
		return
	}
	log.Debug("sent webhook notification")
}

func ticketEmbedField(name string, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{
		Name:   name,
		Value:  value,
		Inline: true,
	}
}

// TicketCreated sends the 'new ticket' notification, with the issue
// summary field when a summary is available.
func (n *Notifier) TicketCreated(
	ctx context.Context,
	ticketID string,
	ticket Ticket,
	summary string,
) {
	embed := &discordgo.MessageEmbed{
		Title: "New Ticket Created",
		Color: notifyColorCreated,
		Fields: []*discordgo.MessageEmbedField{
			ticketEmbedField("Ticket", ticketID),
			ticketEmbedField("User", fmt.Sprintf("<@%s>", ticket.UserID)),
			ticketEmbedField("Channel", fmt.Sprintf("<#%s>", ticket.ChannelID)),
			{
				Name:  "Issue",
				Value: ellipsize(ticket.Issue, 1024),
			},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if summary != "" {
		embed.Fields = append(
			embed.Fields,
			&discordgo.MessageEmbedField{
				Name:  "Summary",
				Value: ellipsize(summary, 1024),
			},
		)
	}
	n.Send(ctx, embed)
}

// TicketClaimed sends the 'ticket claimed' notification.
func (n *Notifier) TicketClaimed(
	ctx context.Context,
	ticketID string,
	ticket Ticket,
) {
	n.Send(
		ctx, &discordgo.MessageEmbed{
			Title: "Ticket Claimed",
			Color: notifyColorClaimed,
			Fields: []*discordgo.MessageEmbedField{
				ticketEmbedField("Ticket", ticketID),
				ticketEmbedField("Claimed By", fmt.Sprintf("<@%s>", ticket.ClaimedBy)),
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	)
}

// TicketClosed sends the 'ticket closed' notification.
func (n *Notifier) TicketClosed(
	ctx context.Context,
	ticketID string,
	ticket Ticket,
) {
	n.Send(
		ctx, &discordgo.MessageEmbed{
			Title: "Ticket Closed",
			Color: notifyColorClosed,
			Fields: []*discordgo.MessageEmbedField{
				ticketEmbedField("Ticket", ticketID),
				ticketEmbedField("Closed By", fmt.Sprintf("<@%s>", ticket.ClosedBy)),
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	)
}

// TicketReopened sends the 'ticket reopened' notification.
func (n *Notifier) TicketReopened(
	ctx context.Context,
	ticketID string,
	ticket Ticket,
) {
	n.Send(
		ctx, &discordgo.MessageEmbed{
			Title: "Ticket Reopened",
			Color: notifyColorReopened,
			Fields: []*discordgo.MessageEmbedField{
				ticketEmbedField("Ticket", ticketID),
				ticketEmbedField("Reopened By", fmt.Sprintf("<@%s>", ticket.ReopenedBy)),
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	)
}

// TicketDeleted sends the 'ticket deleted' notification.
func (n *Notifier) TicketDeleted(
	ctx context.Context,
	ticketID string,
	deletedBy string,
) {
	n.Send(
		ctx, &discordgo.MessageEmbed{
			Title: "Ticket Deleted",
			Color: notifyColorDeleted,
			Fields: []*discordgo.MessageEmbedField{
				ticketEmbedField("Ticket", ticketID),
				ticketEmbedField("Deleted By", fmt.Sprintf("<@%s>", deletedBy)),
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	)
}
