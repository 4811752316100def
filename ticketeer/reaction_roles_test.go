package ticketeer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReactionRoleRegistry(t testing.TB) (*ReactionRoleRegistry, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)
	registry, err := NewReactionRoleRegistry(store, nil)
	require.NoError(t, err)
	return registry, dir
}

func TestReactionRoleAddAndGet(t *testing.T) {
	registry, _ := newTestReactionRoleRegistry(t)

	emoji := RoleEmoji{Name: "🔴", Raw: "🔴"}
	require.NoError(t, registry.AddRole("guild-1", "colors", "role-red", emoji))

	cat, err := registry.Category("guild-1", "colors")
	require.NoError(t, err)
	require.Len(t, cat.Roles, 1)
	assert.Equal(t, "role-red", cat.Roles["🔴"].RoleID)
	assert.False(t, cat.HasPanel())

	// same emoji upserts
	require.NoError(t, registry.AddRole("guild-1", "colors", "role-crimson", emoji))
	cat, err = registry.Category("guild-1", "colors")
	require.NoError(t, err)
	require.Len(t, cat.Roles, 1)
	assert.Equal(t, "role-crimson", cat.Roles["🔴"].RoleID)

	_, err = registry.Category("guild-1", "nope")
	require.ErrorIs(t, err, ErrCategoryNotFound)
	_, err = registry.Category("guild-2", "colors")
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestReactionRoleTupleEncoding(t *testing.T) {
	registry, dir := newTestReactionRoleRegistry(t)

	emoji := RoleEmoji{ID: "112233", Name: "partyparrot", Raw: "<:partyparrot:112233>"}
	require.NoError(t, registry.AddRole("guild-1", "fun", "role-1", emoji))

	data, err := os.ReadFile(filepath.Join(dir, "reaction_roles.json"))
	require.NoError(t, err)

	// bindings persist as [roleID, emoji] pairs
	var doc map[string]map[string]struct {
		Roles map[string][]json.RawMessage `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	binding := doc["guild-1"]["fun"].Roles["<:partyparrot:112233>"]
	require.Len(t, binding, 2)

	var roleID string
	require.NoError(t, json.Unmarshal(binding[0], &roleID))
	assert.Equal(t, "role-1", roleID)

	var decoded RoleEmoji
	require.NoError(t, json.Unmarshal(binding[1], &decoded))
	assert.Equal(t, emoji, decoded)

	// and round-trip through a fresh registry
	store, err := NewStore(dir, nil)
	require.NoError(t, err)
	reloaded, err := NewReactionRoleRegistry(store, nil)
	require.NoError(t, err)
	cat, err := reloaded.Category("guild-1", "fun")
	require.NoError(t, err)
	assert.Equal(t, "role-1", cat.Roles["<:partyparrot:112233>"].RoleID)
	assert.Equal(t, emoji, cat.Roles["<:partyparrot:112233>"].Emoji)
}

func TestReactionRoleBindPanel(t *testing.T) {
	registry, _ := newTestReactionRoleRegistry(t)

	err := registry.BindPanel("guild-1", "colors", "chan-1", "msg-1", PanelTypeButton)
	require.ErrorIs(t, err, ErrCategoryNotFound)

	emoji := RoleEmoji{Name: "🔴", Raw: "🔴"}
	require.NoError(t, registry.AddRole("guild-1", "colors", "role-red", emoji))

	require.NoError(
		t,
		registry.BindPanel("guild-1", "colors", "chan-1", "msg-1", PanelTypeButton),
	)
	cat, err := registry.Category("guild-1", "colors")
	require.NoError(t, err)
	assert.True(t, cat.HasPanel())
	assert.Equal(t, "msg-1", cat.MessageID)
	assert.Equal(t, "chan-1", cat.ChannelID)
	assert.Equal(t, PanelTypeButton, cat.PanelType)

	// re-rendering rebinds to the newest panel
	require.NoError(
		t,
		registry.BindPanel("guild-1", "colors", "chan-2", "msg-2", PanelTypeMenu),
	)
	cat, err = registry.Category("guild-1", "colors")
	require.NoError(t, err)
	assert.Equal(t, "msg-2", cat.MessageID)
	assert.Equal(t, PanelTypeMenu, cat.PanelType)
}

func TestReactionRoleDeleteCategory(t *testing.T) {
	registry, _ := newTestReactionRoleRegistry(t)

	require.ErrorIs(
		t,
		registry.DeleteCategory("guild-1", "colors"),
		ErrCategoryNotFound,
	)

	emoji := RoleEmoji{Name: "🔴", Raw: "🔴"}
	require.NoError(t, registry.AddRole("guild-1", "colors", "role-red", emoji))
	require.NoError(t, registry.DeleteCategory("guild-1", "colors"))

	_, err := registry.Category("guild-1", "colors")
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestReactionRoleSaveFailureRollsBack(t *testing.T) {
	registry, dir := newTestReactionRoleRegistry(t)

	emoji := RoleEmoji{Name: "🔴", Raw: "🔴"}
	require.NoError(t, registry.AddRole("guild-1", "colors", "role-red", emoji))

	breakStore(t, dir)

	blue := RoleEmoji{Name: "🔵", Raw: "🔵"}
	err := registry.AddRole("guild-1", "colors", "role-blue", blue)
	require.ErrorIs(t, err, ErrStoreUnwritable)
	cat, catErr := registry.Category("guild-1", "colors")
	require.NoError(t, catErr)
	assert.Len(t, cat.Roles, 1)

	// a failed add into a new guild doesn't leave the guild behind
	err = registry.AddRole("guild-2", "misc", "role-x", blue)
	require.ErrorIs(t, err, ErrStoreUnwritable)
	assert.Equal(t, []string{"guild-1"}, registry.GuildIDs())

	err = registry.BindPanel("guild-1", "colors", "chan-1", "msg-1", PanelTypeButton)
	require.ErrorIs(t, err, ErrStoreUnwritable)
	cat, catErr = registry.Category("guild-1", "colors")
	require.NoError(t, catErr)
	assert.False(t, cat.HasPanel())

	err = registry.DeleteCategory("guild-1", "colors")
	require.ErrorIs(t, err, ErrStoreUnwritable)
	_, catErr = registry.Category("guild-1", "colors")
	require.NoError(t, catErr)
}

func TestCopyCategoryIsDeep(t *testing.T) {
	registry, _ := newTestReactionRoleRegistry(t)

	emoji := RoleEmoji{Name: "🔴", Raw: "🔴"}
	require.NoError(t, registry.AddRole("guild-1", "colors", "role-red", emoji))

	cat, err := registry.Category("guild-1", "colors")
	require.NoError(t, err)
	cat.Roles["🔴"] = RoleBinding{RoleID: "mutated", Emoji: emoji}

	fresh, err := registry.Category("guild-1", "colors")
	require.NoError(t, err)
	assert.Equal(t, "role-red", fresh.Roles["🔴"].RoleID)
}
