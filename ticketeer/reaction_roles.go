package ticketeer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

const reactionRoleDocumentName = "reaction_roles"

var (
	// ErrCategoryNotFound is returned when a guild has no reaction-role
	// category with the given name.
	ErrCategoryNotFound = errors.New("reaction role category not found")

	// ErrEmptyCategory is returned when rendering a panel for a category
	// with no roles in it.
	ErrEmptyCategory = errors.New("reaction role category has no roles")

	// ErrRoleGone is returned when a panel references a role that no
	// longer exists server-side.
	ErrRoleGone = errors.New("role no longer exists")
)

// PanelType distinguishes the two panel renderings for a category.
type PanelType string

const (
	PanelTypeButton PanelType = "button"
	PanelTypeMenu   PanelType = "menu"
)

// RoleEmoji describes the emoji associated with a role binding. Raw is
// the emoji exactly as the admin typed it; ID is set only for custom
// guild emoji.
type RoleEmoji struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Raw  string `json:"raw"`
}

// RoleBinding pairs a role ID with its emoji. It persists as a
// two-element array [roleID, emoji] to keep the document layout
// compatible with existing data files.
type RoleBinding struct {
	RoleID string
	Emoji  RoleEmoji
}

func (b RoleBinding) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{b.RoleID, b.Emoji})
}

func (b *RoleBinding) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("expected [roleID, emoji] pair, got %d elements", len(parts))
	}
	if err := json.Unmarshal(parts[0], &b.RoleID); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], &b.Emoji)
}

// RoleCategory is one named group of self-assignable roles, with an
// optional bound panel. A category has at most one recorded panel;
// rendering a new panel overwrites the binding but does not retract the
// previously sent panel message (matching long-standing behavior -
// the old panel keeps working since toggle dispatch is stateless).
type RoleCategory struct {
	Roles     map[string]RoleBinding `json:"roles"`
	MessageID string                 `json:"message_id,omitempty"`
	ChannelID string                 `json:"channel_id,omitempty"`
	PanelType PanelType              `json:"panel_type,omitempty"`
}

// HasPanel reports whether a panel has been rendered for the category.
func (c RoleCategory) HasPanel() bool {
	return c.MessageID != ""
}

// copyCategory returns a deep copy so callers can't mutate registry
// state outside the lock.
func copyCategory(c *RoleCategory) RoleCategory {
	out := RoleCategory{
		MessageID: c.MessageID,
		ChannelID: c.ChannelID,
		PanelType: c.PanelType,
		Roles:     make(map[string]RoleBinding, len(c.Roles)),
	}
	for k, v := range c.Roles {
		out.Roles[k] = v
	}
	return out
}

// reactionRoleDocument maps guild ID -> category name -> category.
type reactionRoleDocument map[string]map[string]*RoleCategory

// ReactionRoleRegistry owns the category -> role -> emoji mappings and
// the persisted panel bindings. Like the ticket registry, all mutations
// serialize behind a mutex and persist before reporting success.
type ReactionRoleRegistry struct {
	store  *Store
	logger *slog.Logger
	mu     sync.Mutex
	doc    reactionRoleDocument
}

// NewReactionRoleRegistry loads (or initializes) the reaction-role
// document from the given store.
func NewReactionRoleRegistry(store *Store, logger *slog.Logger) (
	*ReactionRoleRegistry,
	error,
) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &ReactionRoleRegistry{
		store:  store,
		logger: logger.With(loggerNameKey, "reaction_role_registry"),
		doc:    reactionRoleDocument{},
	}
	if err := store.Load(reactionRoleDocumentName, &r.doc); err != nil {
		return nil, err
	}
	if r.doc == nil {
		r.doc = reactionRoleDocument{}
	}
	return r, nil
}

func (r *ReactionRoleRegistry) save() error {
	if err := r.store.Save(reactionRoleDocumentName, &r.doc); err != nil {
		return fmt.Errorf("%w: %s", ErrStoreUnwritable, err)
	}
	return nil
}

// AddRole upserts a role binding into the named category, creating the
// category if absent. Repeated identical calls are idempotent: the
// binding for the emoji key is overwritten.
func (r *ReactionRoleRegistry) AddRole(
	guildID string,
	category string,
	roleID string,
	emoji RoleEmoji,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	guild, ok := r.doc[guildID]
	createdGuild := false
	if !ok {
		guild = map[string]*RoleCategory{}
		r.doc[guildID] = guild
		createdGuild = true
	}

	cat, ok := guild[category]
	createdCategory := false
	if !ok {
		cat = &RoleCategory{Roles: map[string]RoleBinding{}}
		guild[category] = cat
		createdCategory = true
	}

	prev, hadPrev := cat.Roles[emoji.Raw]
	cat.Roles[emoji.Raw] = RoleBinding{RoleID: roleID, Emoji: emoji}

	if err := r.save(); err != nil {
		if hadPrev {
			cat.Roles[emoji.Raw] = prev
		} else {
			delete(cat.Roles, emoji.Raw)
		}
		if createdCategory {
			delete(guild, category)
		}
		if createdGuild {
			delete(r.doc, guildID)
		}
		return err
	}
	return nil
}

// Category returns a copy of the named category.
func (r *ReactionRoleRegistry) Category(guildID string, category string) (
	RoleCategory,
	error,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	guild, ok := r.doc[guildID]
	if !ok {
		return RoleCategory{}, ErrCategoryNotFound
	}
	cat, ok := guild[category]
	if !ok {
		return RoleCategory{}, ErrCategoryNotFound
	}
	return copyCategory(cat), nil
}

// Categories returns copies of all categories for a guild, keyed by name.
func (r *ReactionRoleRegistry) Categories(guildID string) map[string]RoleCategory {
	r.mu.Lock()
	defer r.mu.Unlock()

	guild, ok := r.doc[guildID]
	if !ok {
		return nil
	}
	out := make(map[string]RoleCategory, len(guild))
	for name, cat := range guild {
		out[name] = copyCategory(cat)
	}
	return out
}

// CategoryNames returns a guild's category names, sorted.
func (r *ReactionRoleRegistry) CategoryNames(guildID string) []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.doc[guildID]))
	for name := range r.doc[guildID] {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)
	return names
}

// GuildIDs returns every guild with at least one category, sorted.
func (r *ReactionRoleRegistry) GuildIDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.doc))
	for id := range r.doc {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// BindPanel records the message identity of a freshly rendered panel on
// the category, so toggle dispatch survives restarts on persisted state
// alone.
func (r *ReactionRoleRegistry) BindPanel(
	guildID string,
	category string,
	channelID string,
	messageID string,
	panelType PanelType,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	guild, ok := r.doc[guildID]
	if !ok {
		return ErrCategoryNotFound
	}
	cat, ok := guild[category]
	if !ok {
		return ErrCategoryNotFound
	}

	prevMessage, prevChannel, prevType := cat.MessageID, cat.ChannelID, cat.PanelType
	cat.MessageID = messageID
	cat.ChannelID = channelID
	cat.PanelType = panelType

	if err := r.save(); err != nil {
		cat.MessageID, cat.ChannelID, cat.PanelType = prevMessage, prevChannel, prevType
		return err
	}
	return nil
}

// DeleteCategory removes a category and its panel binding.
func (r *ReactionRoleRegistry) DeleteCategory(guildID string, category string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	guild, ok := r.doc[guildID]
	if !ok {
		return ErrCategoryNotFound
	}
	cat, ok := guild[category]
	if !ok {
		return ErrCategoryNotFound
	}

	delete(guild, category)
	if err := r.save(); err != nil {
		guild[category] = cat
		return err
	}
	return nil
}
