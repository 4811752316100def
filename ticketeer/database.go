package ticketeer

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	dbTypeSQLite   = "sqlite"
	dbTypePostgres = "postgres"
)

// InteractionLog is an audit row recorded for every discord interaction
// the bot receives, before any handling happens.
type InteractionLog struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	InteractionID string    `gorm:"index" json:"interaction_id"`
	Type          string    `json:"type"`
	UserID        string    `gorm:"index" json:"user_id"`
	Username      string    `json:"username"`
	GuildID       string    `json:"guild_id"`
	ChannelID     string    `json:"channel_id"`

	// CommandName is set for application command interactions
	CommandName string `json:"command_name"`

	// CustomID is set for component and modal interactions
	CustomID string `json:"custom_id"`
}

// TicketEvent is an audit row recorded for every ticket state
// transition. The JSON registry is the source of truth for current
// state; these rows exist for history, which the registry deliberately
// discards (a deleted ticket leaves no trace in the document).
type TicketEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TicketID  string    `gorm:"index" json:"ticket_id"`
	Event     string    `json:"event"`
	UserID    string    `json:"user_id"`
	ChannelID string    `json:"channel_id"`
	Detail    string    `json:"detail"`
}

// Ticket event names recorded in TicketEvent rows.
const (
	TicketEventCreated  = "created"
	TicketEventClaimed  = "claimed"
	TicketEventClosed   = "closed"
	TicketEventReopened = "reopened"
	TicketEventDeleted  = "deleted"
)

// CreateDB initializes the database connection and runs migrations.
func CreateDB(
	databaseType string,
	database string,
	slowThreshold time.Duration,
	handler slog.Handler,
) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch databaseType {
	case dbTypeSQLite:
		dialector = sqlite.Open(database)
	case dbTypePostgres:
		dialector = postgres.Open(database)
	default:
		return nil, fmt.Errorf("unknown database type: %s", databaseType)
	}

	db, err := gorm.Open(
		dialector,
		&gorm.Config{
			Logger: newGORMLogger(handler, slowThreshold),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = db.AutoMigrate(
		&InteractionLog{},
		&TicketEvent{},
	); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	return db, nil
}
