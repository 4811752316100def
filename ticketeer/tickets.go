package ticketeer

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

const ticketDocumentName = "tickets"

// ticketIDFormat is the stable shape of ticket identifiers: the counter
// is per-deployment, monotonically increasing, and never reused.
const ticketIDFormat = "ticket-%d"

var (
	// ErrDuplicateActiveTicket is returned when a user who already has an
	// active ticket tries to open another one.
	ErrDuplicateActiveTicket = errors.New("user already has an active ticket")

	// ErrTicketNotFound is returned when a ticket ID matches neither the
	// active nor closed partition.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrTicketNotActive is returned by operations requiring an active
	// ticket (claim, close) when the ticket isn't in the active partition.
	ErrTicketNotActive = errors.New("ticket is not active")

	// ErrTicketNotClosed is returned by operations requiring a closed
	// ticket (reopen, delete) when the ticket isn't in the closed partition.
	ErrTicketNotClosed = errors.New("ticket is not closed")

	// ErrStoreUnwritable wraps persistence failures. Operations that hit
	// it roll back their in-memory mutation so memory never disagrees
	// with disk.
	ErrStoreUnwritable = errors.New("store unwritable")
)

// TicketStatus is the persisted lifecycle status of a ticket. "claimed"
// is not a distinct status: an active ticket with ClaimedBy set is
// considered claimed.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is one support request. The requester gets a dedicated private
// channel; the record outlives the channel (the channel is a weak
// reference, looked up by ID and tolerated if missing).
type Ticket struct {
	UserID     string       `json:"user_id"`
	ChannelID  string       `json:"channel_id"`
	Issue      string       `json:"issue"`
	CreatedAt  time.Time    `json:"created_at"`
	Status     TicketStatus `json:"status"`
	ClaimedBy  string       `json:"claimed_by,omitempty"`
	ClaimedAt  *time.Time   `json:"claimed_at,omitempty"`
	ClosedBy   string       `json:"closed_by,omitempty"`
	ClosedAt   *time.Time   `json:"closed_at,omitempty"`
	ReopenedBy string       `json:"reopened_by,omitempty"`
	ReopenedAt *time.Time   `json:"reopened_at,omitempty"`
}

// Claimed reports whether a staff member has claimed the ticket.
func (t Ticket) Claimed() bool {
	return t.ClaimedBy != ""
}

func (t Ticket) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("user_id", t.UserID),
		slog.String("channel_id", t.ChannelID),
		slog.String("status", string(t.Status)),
	}
	if t.ClaimedBy != "" {
		attrs = append(attrs, slog.String("claimed_by", t.ClaimedBy))
	}
	return slog.GroupValue(attrs...)
}

// ticketDocument is the single persisted document backing the ticket
// registry. A ticket ID appears in exactly one of Active/Closed at any
// time; moving it between them is the only mutation close/reopen perform.
type ticketDocument struct {
	Counter int                `json:"ticket_counter"`
	Active  map[string]*Ticket `json:"active_tickets"`
	Closed  map[string]*Ticket `json:"closed_tickets"`
}

func newTicketDocument() ticketDocument {
	return ticketDocument{
		Active: map[string]*Ticket{},
		Closed: map[string]*Ticket{},
	}
}

// TicketRegistry owns the ticket document: counter allocation and the
// active/closed partition. All mutations go through its methods, which
// serialize behind a mutex and persist before reporting success.
type TicketRegistry struct {
	store  *Store
	logger *slog.Logger
	mu     sync.Mutex
	doc    ticketDocument
}

// NewTicketRegistry loads (or initializes) the ticket document from the
// given store.
func NewTicketRegistry(store *Store, logger *slog.Logger) (*TicketRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &TicketRegistry{
		store:  store,
		logger: logger.With(loggerNameKey, "ticket_registry"),
		doc:    newTicketDocument(),
	}
	if err := store.Load(ticketDocumentName, &r.doc); err != nil {
		return nil, err
	}
	if r.doc.Active == nil {
		r.doc.Active = map[string]*Ticket{}
	}
	if r.doc.Closed == nil {
		r.doc.Closed = map[string]*Ticket{}
	}
	return r, nil
}

func (r *TicketRegistry) save() error {
	if err := r.store.Save(ticketDocumentName, &r.doc); err != nil {
		return fmt.Errorf("%w: %s", ErrStoreUnwritable, err)
	}
	return nil
}

// Allocate increments the ticket counter and returns the next ticket ID.
// Allocated IDs are never reused, even if the ticket they were intended
// for is never created.
func (r *TicketRegistry) Allocate() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.Counter++
	if err := r.save(); err != nil {
		r.doc.Counter--
		return "", err
	}
	return fmt.Sprintf(ticketIDFormat, r.doc.Counter), nil
}

// CreateActive inserts a new open ticket into the active partition.
// The one-active-ticket-per-user invariant is re-checked here, under the
// registry lock, even though the dispatch layer checks it first.
func (r *TicketRegistry) CreateActive(
	id string,
	userID string,
	channelID string,
	issue string,
) (Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.doc.Active {
		if t.UserID == userID {
			return Ticket{}, ErrDuplicateActiveTicket
		}
	}

	ticket := &Ticket{
		UserID:    userID,
		ChannelID: channelID,
		Issue:     issue,
		CreatedAt: time.Now().UTC(),
		Status:    TicketStatusOpen,
	}
	r.doc.Active[id] = ticket
	if err := r.save(); err != nil {
		delete(r.doc.Active, id)
		return Ticket{}, err
	}
	return *ticket, nil
}

// Get returns the ticket with the given ID from either partition.
func (r *TicketRegistry) Get(id string) (Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.doc.Active[id]; ok {
		return *t, nil
	}
	if t, ok := r.doc.Closed[id]; ok {
		return *t, nil
	}
	return Ticket{}, ErrTicketNotFound
}

// Claim marks an active ticket as claimed by the given staff member.
// Re-claiming by a different staff member is allowed: last claim wins.
func (r *TicketRegistry) Claim(id string, staffID string) (Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.doc.Active[id]
	if !ok {
		return Ticket{}, ErrTicketNotActive
	}

	prevBy, prevAt := ticket.ClaimedBy, ticket.ClaimedAt
	now := time.Now().UTC()
	ticket.ClaimedBy = staffID
	ticket.ClaimedAt = &now
	if err := r.save(); err != nil {
		ticket.ClaimedBy, ticket.ClaimedAt = prevBy, prevAt
		return Ticket{}, err
	}
	return *ticket, nil
}

// MoveToClosed moves an active ticket to the closed partition.
func (r *TicketRegistry) MoveToClosed(id string, closedBy string) (Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.doc.Active[id]
	if !ok {
		return Ticket{}, ErrTicketNotActive
	}

	prev := *ticket
	now := time.Now().UTC()
	ticket.Status = TicketStatusClosed
	ticket.ClosedBy = closedBy
	ticket.ClosedAt = &now
	r.doc.Closed[id] = ticket
	delete(r.doc.Active, id)

	if err := r.save(); err != nil {
		*ticket = prev
		r.doc.Active[id] = ticket
		delete(r.doc.Closed, id)
		return Ticket{}, err
	}
	return *ticket, nil
}

// MoveToActive moves a closed ticket back to the active partition. The
// one-active-ticket-per-user invariant holds across reopens too: if the
// owner already has another active ticket, the reopen is refused.
func (r *TicketRegistry) MoveToActive(id string, reopenedBy string) (Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.doc.Closed[id]
	if !ok {
		return Ticket{}, ErrTicketNotClosed
	}
	for _, other := range r.doc.Active {
		if other.UserID == ticket.UserID {
			return Ticket{}, ErrDuplicateActiveTicket
		}
	}

	prev := *ticket
	now := time.Now().UTC()
	ticket.Status = TicketStatusOpen
	ticket.ReopenedBy = reopenedBy
	ticket.ReopenedAt = &now
	r.doc.Active[id] = ticket
	delete(r.doc.Closed, id)

	if err := r.save(); err != nil {
		*ticket = prev
		r.doc.Closed[id] = ticket
		delete(r.doc.Active, id)
		return Ticket{}, err
	}
	return *ticket, nil
}

// Remove deletes a closed ticket's record. Deletion is only permitted on
// closed tickets; the guard is enforced here, not just by routing.
func (r *TicketRegistry) Remove(id string) (Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.doc.Closed[id]
	if !ok {
		return Ticket{}, ErrTicketNotClosed
	}

	delete(r.doc.Closed, id)
	if err := r.save(); err != nil {
		r.doc.Closed[id] = ticket
		return Ticket{}, err
	}
	return *ticket, nil
}

// ActiveTicketFor returns the ID of the user's active ticket, if any.
func (r *TicketRegistry) ActiveTicketFor(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.doc.Active {
		if t.UserID == userID {
			return id, true
		}
	}
	return "", false
}

// ActiveTickets returns a copy of the active partition.
func (r *TicketRegistry) ActiveTickets() map[string]Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	tickets := make(map[string]Ticket, len(r.doc.Active))
	for id, t := range r.doc.Active {
		tickets[id] = *t
	}
	return tickets
}

// ActiveTicketIDs returns the active ticket IDs sorted by ticket number.
func (r *TicketRegistry) ActiveTicketIDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.doc.Active))
	for id := range r.doc.Active {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Slice(
		ids, func(i, j int) bool {
			return ticketNumber(ids[i]) < ticketNumber(ids[j])
		},
	)
	return ids
}

// ClosedCount returns the number of tickets in the closed partition.
func (r *TicketRegistry) ClosedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.doc.Closed)
}

// Counter returns the last allocated ticket number.
func (r *TicketRegistry) Counter() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Counter
}

// ticketNumber extracts the numeric component of a ticket ID
// ("ticket-7" -> 7). Returns 0 for malformed IDs.
func ticketNumber(id string) int {
	_, numStr, found := strings.Cut(id, "-")
	if !found {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(numStr, "%d", &n); err != nil {
		return 0
	}
	return n
}
