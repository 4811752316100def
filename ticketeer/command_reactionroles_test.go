package ticketeer

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReactionRoleManager(
	t testing.TB,
	session *mockDiscordSession,
) *ReactionRoleManager {
	t.Helper()
	registry, _ := newTestReactionRoleRegistry(t)
	return NewReactionRoleManager(registry, session, nil)
}

func TestParseRoleEmoji(t *testing.T) {
	e := parseRoleEmoji("🔴")
	assert.Empty(t, e.ID)
	assert.Equal(t, "🔴", e.Name)
	assert.Equal(t, "🔴", e.Raw)
	assert.Equal(t, "🔴", emojiKey(e))

	e = parseRoleEmoji("<:partyparrot:112233>")
	assert.Equal(t, "112233", e.ID)
	assert.Equal(t, "partyparrot", e.Name)
	assert.Equal(t, "<:partyparrot:112233>", e.Raw)
	assert.Equal(t, "112233", emojiKey(e))

	e = parseRoleEmoji("<a:spinning:445566>")
	assert.Equal(t, "445566", e.ID)
	assert.Equal(t, "spinning", e.Name)
}

func roleOption(roleID string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  reactionRoleRoleOption,
		Type:  discordgo.ApplicationCommandOptionRole,
		Value: roleID,
	}
}

func TestAddRoleCommand(t *testing.T) {
	ctx := context.Background()
	session := newMockDiscordSession()
	rm := newTestReactionRoleManager(t, session)

	i := commandInteraction(
		t,
		DiscordSlashCommandReactionRoleAdd,
		"admin-1",
		int64(discordgo.PermissionManageRoles),
		stringOption(reactionRoleCategoryOption, "colors"),
		roleOption("role-red"),
		stringOption(reactionRoleEmojiOption, "🔴"),
	)
	handler := newStubInteractionHandler(t, i)
	rm.AddRoleCommand(ctx, handler)

	rv := handler.nextResponse(t)
	assert.Contains(t, rv.Data.Content, "colors")
	assert.Equal(t, discordgo.MessageFlagsEphemeral, rv.Data.Flags)

	cat, err := rm.registry.Category("guild-1", "colors")
	require.NoError(t, err)
	assert.Equal(t, "role-red", cat.Roles["🔴"].RoleID)
}

func TestButtonPanelCommand(t *testing.T) {
	ctx := context.Background()
	session := newMockDiscordSession()
	session.guildRoles = []*discordgo.Role{
		{ID: "role-red", Name: "Red"},
		{ID: "role-blue", Name: "Blue"},
	}
	rm := newTestReactionRoleManager(t, session)

	require.NoError(
		t,
		rm.registry.AddRole(
			"guild-1", "colors", "role-red", RoleEmoji{Name: "🔴", Raw: "🔴"},
		),
	)
	require.NoError(
		t,
		rm.registry.AddRole(
			"guild-1", "colors", "role-blue", RoleEmoji{Name: "🔵", Raw: "🔵"},
		),
	)

	i := commandInteraction(
		t,
		DiscordSlashCommandReactionRoleButton,
		"admin-1",
		int64(discordgo.PermissionManageRoles),
		stringOption(reactionRoleCategoryOption, "colors"),
	)
	handler := newStubInteractionHandler(t, i)
	rm.ButtonPanelCommand(ctx, handler)

	panel := nextSentMessage(t, session)
	assert.Equal(t, "channel-1", panel.ChannelID)
	require.Len(t, panel.Data.Components, 1)
	row, ok := panel.Data.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 2)

	redBtn, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, "reaction_role:🔴:role-red", redBtn.CustomID)
	assert.Equal(t, "Red", redBtn.Label)

	rv := handler.nextResponse(t)
	assert.Contains(t, rv.Data.Content, "Published")

	cat, err := rm.registry.Category("guild-1", "colors")
	require.NoError(t, err)
	require.True(t, cat.HasPanel())
	assert.Equal(t, PanelTypeButton, cat.PanelType)
	assert.Equal(t, "channel-1", cat.ChannelID)
}

func TestMenuPanelCommand(t *testing.T) {
	ctx := context.Background()
	session := newMockDiscordSession()
	session.guildRoles = []*discordgo.Role{{ID: "role-red", Name: "Red"}}
	rm := newTestReactionRoleManager(t, session)

	require.NoError(
		t,
		rm.registry.AddRole(
			"guild-1", "colors", "role-red", RoleEmoji{Name: "🔴", Raw: "🔴"},
		),
	)

	i := commandInteraction(
		t,
		DiscordSlashCommandReactionRoleMenu,
		"admin-1",
		int64(discordgo.PermissionManageRoles),
		stringOption(reactionRoleCategoryOption, "colors"),
	)
	handler := newStubInteractionHandler(t, i)
	rm.MenuPanelCommand(ctx, handler)

	panel := nextSentMessage(t, session)
	require.Len(t, panel.Data.Components, 1)
	row, ok := panel.Data.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	menu, ok := row.Components[0].(discordgo.SelectMenu)
	require.True(t, ok)
	assert.Equal(t, customIDReactionSelect, menu.CustomID)
	require.Len(t, menu.Options, 1)
	assert.Equal(t, "role-red", menu.Options[0].Value)
	assert.Equal(t, "Red", menu.Options[0].Label)

	handler.nextResponse(t)
	cat, err := rm.registry.Category("guild-1", "colors")
	require.NoError(t, err)
	assert.Equal(t, PanelTypeMenu, cat.PanelType)
}

func TestPanelCommandEmptyCategory(t *testing.T) {
	ctx := context.Background()
	session := newMockDiscordSession()
	rm := newTestReactionRoleManager(t, session)

	i := commandInteraction(
		t,
		DiscordSlashCommandReactionRoleButton,
		"admin-1",
		int64(discordgo.PermissionManageRoles),
		stringOption(reactionRoleCategoryOption, "ghosts"),
	)
	handler := newStubInteractionHandler(t, i)
	rm.ButtonPanelCommand(ctx, handler)

	rv := handler.nextResponse(t)
	assert.Contains(t, rv.Data.Content, "No reaction role category")
}

func TestToggleRole(t *testing.T) {
	ctx := context.Background()
	session := newMockDiscordSession()
	session.guildRoles = []*discordgo.Role{{ID: "role-red", Name: "Red"}}
	rm := newTestReactionRoleManager(t, session)

	// first press adds the role
	add := newStubInteractionHandler(
		t,
		componentInteraction(t, "reaction_role:🔴:role-red", "user-1", 0),
	)
	rm.ToggleRole(ctx, add, "role-red")
	rv := add.nextResponse(t)
	assert.Contains(t, rv.Data.Content, "Added")
	assert.Equal(t, discordgo.MessageFlagsEphemeral, rv.Data.Flags)
	select {
	case change := <-session.roleAdds:
		assert.Equal(t, roleChangeCall{"guild-1", "user-1", "role-red"}, change)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for role add")
	}

	// second press removes it
	remove := newStubInteractionHandler(
		t,
		componentInteraction(t, "reaction_role:🔴:role-red", "user-1", 0),
	)
	rm.ToggleRole(ctx, remove, "role-red")
	rv = remove.nextResponse(t)
	assert.Contains(t, rv.Data.Content, "Removed")
	select {
	case change := <-session.roleRemoves:
		assert.Equal(t, roleChangeCall{"guild-1", "user-1", "role-red"}, change)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for role remove")
	}
}

func TestToggleRoleGone(t *testing.T) {
	ctx := context.Background()
	session := newMockDiscordSession()
	rm := newTestReactionRoleManager(t, session)

	handler := newStubInteractionHandler(
		t,
		componentInteraction(t, "reaction_role:🔴:role-red", "user-1", 0),
	)
	rm.ToggleRole(ctx, handler, "role-red")
	rv := handler.nextResponse(t)
	assert.Contains(t, rv.Data.Content, "no longer exists")
}

func TestSelectMenuToggle(t *testing.T) {
	ctx := context.Background()
	session := newMockDiscordSession()
	session.guildRoles = []*discordgo.Role{{ID: "role-red", Name: "Red"}}
	rm := newTestReactionRoleManager(t, session)

	handler := newStubInteractionHandler(
		t,
		componentInteraction(t, customIDReactionSelect, "user-1", 0, "role-red"),
	)
	rm.SelectMenuToggle(ctx, handler)
	rv := handler.nextResponse(t)
	assert.Contains(t, rv.Data.Content, "Added")
}

func TestListAndDeleteCommands(t *testing.T) {
	ctx := context.Background()
	session := newMockDiscordSession()
	rm := newTestReactionRoleManager(t, session)

	require.NoError(
		t,
		rm.registry.AddRole(
			"guild-1", "colors", "role-red", RoleEmoji{Name: "🔴", Raw: "🔴"},
		),
	)

	list := newStubInteractionHandler(
		t,
		commandInteraction(
			t,
			DiscordSlashCommandReactionRoleList,
			"admin-1",
			int64(discordgo.PermissionManageRoles),
		),
	)
	rm.ListCommand(ctx, list)
	rv := list.nextResponse(t)
	require.Len(t, rv.Data.Embeds, 1)
	assert.Contains(t, rv.Data.Embeds[0].Description, "colors")

	del := newStubInteractionHandler(
		t,
		commandInteraction(
			t,
			DiscordSlashCommandReactionRoleDelete,
			"admin-1",
			int64(discordgo.PermissionManageRoles),
			stringOption(reactionRoleCategoryOption, "colors"),
		),
	)
	rm.DeleteCommand(ctx, del)
	rv = del.nextResponse(t)
	assert.Contains(t, rv.Data.Content, "Deleted")

	_, err := rm.registry.Category("guild-1", "colors")
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestReattachPanels(t *testing.T) {
	ctx := context.Background()
	session := newMockDiscordSession()
	rm := newTestReactionRoleManager(t, session)

	require.NoError(
		t,
		rm.registry.AddRole(
			"guild-1", "colors", "role-red", RoleEmoji{Name: "🔴", Raw: "🔴"},
		),
	)

	// seed a panel message, bind it, and verify reattachment is quiet
	msg, err := session.ChannelMessageSendComplex(
		"chan-1", &discordgo.MessageSend{Content: "panel"},
	)
	require.NoError(t, err)
	<-session.sentMessages
	require.NoError(
		t,
		rm.registry.BindPanel("guild-1", "colors", "chan-1", msg.ID, PanelTypeButton),
	)

	rm.ReattachPanels(ctx)

	// a binding pointing at a deleted message doesn't error either
	require.NoError(
		t,
		rm.registry.BindPanel("guild-1", "colors", "chan-1", "gone", PanelTypeButton),
	)
	rm.ReattachPanels(ctx)
}
