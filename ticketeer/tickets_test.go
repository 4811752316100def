package ticketeer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTicketRegistry(t testing.TB) (*TicketRegistry, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)
	registry, err := NewTicketRegistry(store, nil)
	require.NoError(t, err)
	return registry, dir
}

// breakStore replaces the registry's data directory with a regular
// file, so every subsequent save fails.
func breakStore(t testing.TB, dir string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o600))
}

func TestTicketRegistryAllocate(t *testing.T) {
	registry, _ := newTestTicketRegistry(t)

	id, err := registry.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "ticket-1", id)

	id, err = registry.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "ticket-2", id)

	// an allocated ID that never becomes a ticket is never reused
	_, err = registry.CreateActive("ticket-2", "user-1", "chan-2", "help")
	require.NoError(t, err)

	id, err = registry.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "ticket-3", id)
	assert.Equal(t, 3, registry.Counter())
}

func TestTicketRegistryDuplicateActive(t *testing.T) {
	registry, _ := newTestTicketRegistry(t)

	_, err := registry.CreateActive("ticket-1", "user-1", "chan-1", "first")
	require.NoError(t, err)

	_, err = registry.CreateActive("ticket-2", "user-1", "chan-2", "second")
	require.ErrorIs(t, err, ErrDuplicateActiveTicket)

	// a different user is fine
	_, err = registry.CreateActive("ticket-2", "user-2", "chan-2", "second")
	require.NoError(t, err)

	id, ok := registry.ActiveTicketFor("user-1")
	assert.True(t, ok)
	assert.Equal(t, "ticket-1", id)
}

func TestTicketRegistryReopenDuplicateActive(t *testing.T) {
	registry, _ := newTestTicketRegistry(t)

	_, err := registry.CreateActive("ticket-1", "user-1", "chan-1", "first")
	require.NoError(t, err)
	_, err = registry.MoveToClosed("ticket-1", "user-1")
	require.NoError(t, err)

	// with ticket-1 closed the owner can open a new ticket
	_, err = registry.CreateActive("ticket-2", "user-1", "chan-2", "second")
	require.NoError(t, err)

	// but reopening ticket-1 would give them two active tickets
	_, err = registry.MoveToActive("ticket-1", "user-1")
	require.ErrorIs(t, err, ErrDuplicateActiveTicket)

	// the refused reopen leaves the ticket closed
	ticket, err := registry.Get("ticket-1")
	require.NoError(t, err)
	assert.Equal(t, TicketStatusClosed, ticket.Status)
	assert.Equal(t, 1, registry.ClosedCount())
}

func TestTicketRegistryLifecycle(t *testing.T) {
	registry, _ := newTestTicketRegistry(t)

	_, err := registry.CreateActive("ticket-1", "user-1", "chan-1", "help")
	require.NoError(t, err)

	ticket, err := registry.Claim("ticket-1", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "staff-1", ticket.ClaimedBy)
	require.NotNil(t, ticket.ClaimedAt)

	// last claim wins
	ticket, err = registry.Claim("ticket-1", "staff-2")
	require.NoError(t, err)
	assert.Equal(t, "staff-2", ticket.ClaimedBy)

	ticket, err = registry.MoveToClosed("ticket-1", "staff-2")
	require.NoError(t, err)
	assert.Equal(t, TicketStatusClosed, ticket.Status)
	assert.Equal(t, "staff-2", ticket.ClosedBy)
	assert.Equal(t, 1, registry.ClosedCount())

	_, ok := registry.ActiveTicketFor("user-1")
	assert.False(t, ok)

	// closed tickets can't be claimed or re-closed
	_, err = registry.Claim("ticket-1", "staff-1")
	require.ErrorIs(t, err, ErrTicketNotActive)
	_, err = registry.MoveToClosed("ticket-1", "staff-1")
	require.ErrorIs(t, err, ErrTicketNotActive)

	ticket, err = registry.MoveToActive("ticket-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, TicketStatusOpen, ticket.Status)
	assert.Equal(t, "user-1", ticket.ReopenedBy)
	assert.Equal(t, 0, registry.ClosedCount())

	// active tickets can't be reopened or deleted
	_, err = registry.MoveToActive("ticket-1", "user-1")
	require.ErrorIs(t, err, ErrTicketNotClosed)
	_, err = registry.Remove("ticket-1")
	require.ErrorIs(t, err, ErrTicketNotClosed)

	_, err = registry.MoveToClosed("ticket-1", "staff-1")
	require.NoError(t, err)
	removed, err := registry.Remove("ticket-1")
	require.NoError(t, err)
	assert.Equal(t, "chan-1", removed.ChannelID)

	_, err = registry.Get("ticket-1")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketRegistrySaveFailureRollsBack(t *testing.T) {
	registry, dir := newTestTicketRegistry(t)

	_, err := registry.CreateActive("ticket-1", "user-1", "chan-1", "help")
	require.NoError(t, err)

	breakStore(t, dir)

	_, err = registry.Allocate()
	require.ErrorIs(t, err, ErrStoreUnwritable)
	assert.Equal(t, 0, registry.Counter())

	_, err = registry.Claim("ticket-1", "staff-1")
	require.ErrorIs(t, err, ErrStoreUnwritable)
	ticket, err := registry.Get("ticket-1")
	require.NoError(t, err)
	assert.Empty(t, ticket.ClaimedBy)

	_, err = registry.MoveToClosed("ticket-1", "staff-1")
	require.ErrorIs(t, err, ErrStoreUnwritable)
	ticket, err = registry.Get("ticket-1")
	require.NoError(t, err)
	assert.Equal(t, TicketStatusOpen, ticket.Status)

	id, ok := registry.ActiveTicketFor("user-1")
	assert.True(t, ok)
	assert.Equal(t, "ticket-1", id)
}

func TestTicketRegistryPersistence(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)

	registry, err := NewTicketRegistry(store, nil)
	require.NoError(t, err)

	id, err := registry.Allocate()
	require.NoError(t, err)
	_, err = registry.CreateActive(id, "user-1", "chan-1", "help")
	require.NoError(t, err)
	_, err = registry.MoveToClosed(id, "staff-1")
	require.NoError(t, err)

	// reload from disk
	reloaded, err := NewTicketRegistry(store, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Counter())
	assert.Equal(t, 1, reloaded.ClosedCount())
	ticket, err := reloaded.Get(id)
	require.NoError(t, err)
	assert.Equal(t, TicketStatusClosed, ticket.Status)
	assert.Equal(t, "user-1", ticket.UserID)
}

func TestTicketDocumentShape(t *testing.T) {
	registry, dir := newTestTicketRegistry(t)

	id, err := registry.Allocate()
	require.NoError(t, err)
	_, err = registry.CreateActive(id, "user-1", "chan-1", "help")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "tickets.json"))
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "ticket_counter")
	assert.Contains(t, doc, "active_tickets")
	assert.Contains(t, doc, "closed_tickets")

	var active map[string]map[string]any
	require.NoError(t, json.Unmarshal(doc["active_tickets"], &active))
	require.Contains(t, active, "ticket-1")
	assert.Equal(t, "user-1", active["ticket-1"]["user_id"])
	assert.Equal(t, "open", active["ticket-1"]["status"])
}

func TestActiveTicketIDsSorted(t *testing.T) {
	registry, _ := newTestTicketRegistry(t)

	// registered out of numeric order to exercise the sort
	_, err := registry.CreateActive("ticket-10", "user-a", "c1", "x")
	require.NoError(t, err)
	_, err = registry.CreateActive("ticket-2", "user-b", "c2", "x")
	require.NoError(t, err)
	_, err = registry.CreateActive("ticket-1", "user-c", "c3", "x")
	require.NoError(t, err)

	assert.Equal(
		t,
		[]string{"ticket-1", "ticket-2", "ticket-10"},
		registry.ActiveTicketIDs(),
	)
}
