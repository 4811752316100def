package ticketeer

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
)

const apiRequestIDHeader = "X-Request-ID"

// apiTicketRecord is the /api/tickets representation of a ticket.
type apiTicketRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	Issue     string `json:"issue"`
	Status    string `json:"status"`
	ClaimedBy string `json:"claimed_by,omitempty"`
	CreatedAt string `json:"created_at"`
}

// API is the read-only status server. It exposes registry state for
// dashboards; nothing here mutates tickets or roles.
type API struct {
	config        APIConfig
	tickets       *TicketRegistry
	reactionRoles *ReactionRoleRegistry
	db            *gorm.DB
	logger        *slog.Logger
	engine        *gin.Engine
}

func NewAPI(
	config APIConfig,
	tickets *TicketRegistry,
	reactionRoles *ReactionRoleRegistry,
	db *gorm.DB,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.Default()
	}
	if !config.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	a := &API{
		config:        config,
		tickets:       tickets,
		reactionRoles: reactionRoles,
		db:            db,
		logger:        logger.With(loggerNameKey, "api"),
	}

	engine := gin.New()
	engine.Use(a.requestIDMiddleware(), a.loggingMiddleware(), gin.Recovery())

	api := engine.Group("/api")
	api.GET("/healthz", a.getHealthz)
	api.GET("/tickets", a.getTickets)
	api.GET("/reactionroles", a.getReactionRoles)
	api.GET("/events", a.getEvents)

	a.engine = engine
	return a
}

// Server returns an http.Server configured per APIConfig, serving the
// API's routes.
func (a *API) Server() *http.Server {
	return &http.Server{
		Addr:              a.config.Listen,
		Handler:           a.engine,
		ReadTimeout:       a.config.ReadTimeout,
		ReadHeaderTimeout: a.config.ReadHeaderTimeout,
		WriteTimeout:      a.config.WriteTimeout,
		IdleTimeout:       a.config.IdleTimeout,
	}
}

func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

func (a *API) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(apiRequestIDHeader)
		if requestID == "" {
			requestID = newRequestID()
		}
		c.Header(apiRequestIDHeader, requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

func (a *API) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Info(
			"request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (a *API) getHealthz(c *gin.Context) {
	c.JSON(
		http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	)
}

func (a *API) getTickets(c *gin.Context) {
	active := a.tickets.ActiveTickets()
	records := make([]apiTicketRecord, 0, len(active))
	for _, id := range a.tickets.ActiveTicketIDs() {
		t, ok := active[id]
		if !ok {
			continue
		}
		records = append(
			records, apiTicketRecord{
				ID:        id,
				UserID:    t.UserID,
				ChannelID: t.ChannelID,
				Issue:     t.Issue,
				Status:    string(t.Status),
				ClaimedBy: t.ClaimedBy,
				CreatedAt: t.CreatedAt.Format(time.RFC3339),
			},
		)
	}
	c.JSON(
		http.StatusOK, gin.H{
			"ticket_counter": a.tickets.Counter(),
			"active":         records,
			"closed_count":   a.tickets.ClosedCount(),
		},
	)
}

func (a *API) getReactionRoles(c *gin.Context) {
	guilds := gin.H{}
	for _, guildID := range a.reactionRoles.GuildIDs() {
		guilds[guildID] = a.reactionRoles.Categories(guildID)
	}
	c.JSON(http.StatusOK, gin.H{"guilds": guilds})
}

// getEvents returns the most recent ticket audit events.
func (a *API) getEvents(c *gin.Context) {
	if a.db == nil {
		c.JSON(http.StatusOK, gin.H{"events": []TicketEvent{}})
		return
	}
	var events []TicketEvent
	rv := a.db.Order("id desc").Limit(100).Find(&events)
	if rv.Error != nil {
		a.logger.Error("error loading ticket events", tint.Err(rv.Error))
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "error loading events"},
		)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
