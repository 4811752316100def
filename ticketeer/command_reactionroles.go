package ticketeer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const (
	// customActionReactionRole prefixes button panel custom IDs:
	// "reaction_role:<emojiKey>:<roleID>". The emoji key is the custom
	// emoji ID, or the raw unicode emoji, so it never contains a colon.
	customActionReactionRole = "reaction_role"

	// customIDReactionSelect is the custom ID for menu panels. The
	// selected option's value carries the role ID.
	customIDReactionSelect = "reaction_select"

	// Discord caps action rows at 5 buttons, and messages at 5 rows.
	panelButtonsPerRow = 5
	panelMaxRoles      = 25
)

var customEmojiPattern = regexp.MustCompile(`^<(a?):([\w~]+):(\d+)>$`)

// parseRoleEmoji interprets the emoji string an admin typed: either a
// custom guild emoji mention or a plain unicode emoji.
func parseRoleEmoji(raw string) RoleEmoji {
	raw = strings.TrimSpace(raw)
	if m := customEmojiPattern.FindStringSubmatch(raw); m != nil {
		return RoleEmoji{ID: m[3], Name: m[2], Raw: raw}
	}
	return RoleEmoji{Name: raw, Raw: raw}
}

// emojiKey returns the colon-free identifier used in panel custom IDs.
func emojiKey(e RoleEmoji) string {
	if e.ID != "" {
		return e.ID
	}
	return e.Raw
}

func componentEmoji(e RoleEmoji) *discordgo.ComponentEmoji {
	if e.ID != "" {
		return &discordgo.ComponentEmoji{ID: e.ID, Name: e.Name}
	}
	return &discordgo.ComponentEmoji{Name: e.Raw}
}

// ReactionRoleManager implements the reaction-role panel commands and
// the role toggle component actions.
type ReactionRoleManager struct {
	registry *ReactionRoleRegistry
	session  DiscordSessionHandler
	logger   *slog.Logger
}

func NewReactionRoleManager(
	registry *ReactionRoleRegistry,
	session DiscordSessionHandler,
	logger *slog.Logger,
) *ReactionRoleManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReactionRoleManager{
		registry: registry,
		session:  session,
		logger:   logger.With(loggerNameKey, "reaction_roles"),
	}
}

// guildRoleNames returns a role ID -> name map for the guild.
func (rm *ReactionRoleManager) guildRoleNames(
	guildID string,
) (map[string]string, error) {
	roles, err := rm.session.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("error listing guild roles: %w", err)
	}
	names := make(map[string]string, len(roles))
	for _, role := range roles {
		names[role.ID] = role.Name
	}
	return names, nil
}

// AddRoleCommand handles `/reactionrole-add`.
func (rm *ReactionRoleManager) AddRoleCommand(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	options := discordInteractionOptions(i)

	category := ""
	if opt, ok := options[reactionRoleCategoryOption]; ok {
		category = strings.TrimSpace(opt.StringValue())
	}
	emojiRaw := ""
	if opt, ok := options[reactionRoleEmojiOption]; ok {
		emojiRaw = opt.StringValue()
	}
	var roleID string
	var roleName string
	if opt, ok := options[reactionRoleRoleOption]; ok {
		roleID = opt.Value.(string)
		if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
			if role, roleOK := resolved.Roles[roleID]; roleOK {
				roleName = role.Name
			}
		}
	}

	if category == "" || roleID == "" || emojiRaw == "" {
		_ = handler.Respond(
			ctx, ephemeralResponse("Category, role, and emoji are all required."),
		)
		return
	}

	emoji := parseRoleEmoji(emojiRaw)
	if err := rm.registry.AddRole(i.GuildID, category, roleID, emoji); err != nil {
		handler.Logger().Error(
			"error adding reaction role",
			tint.Err(err),
			"category", category,
			"role_id", roleID,
		)
		_ = handler.Respond(
			ctx, ephemeralResponse("Something went wrong saving that role."),
		)
		return
	}

	handler.Logger().Info(
		"added reaction role",
		"category", category,
		"role_id", roleID,
		"emoji", emoji.Raw,
	)
	_ = handler.Respond(
		ctx, ephemeralResponse(
			fmt.Sprintf(
				"Added %s **%s** to category **%s**. "+
					"Use `/reactionrole-button` or `/reactionrole-menu` to "+
					"publish the panel.",
				emoji.Raw, roleName, category,
			),
		),
	)
}

// sortedBindings returns a category's bindings in a stable order.
func sortedBindings(cat RoleCategory) []RoleBinding {
	keys := make([]string, 0, len(cat.Roles))
	for k := range cat.Roles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	bindings := make([]RoleBinding, 0, len(keys))
	for _, k := range keys {
		bindings = append(bindings, cat.Roles[k])
	}
	return bindings
}

// ButtonPanelCommand handles `/reactionrole-button`.
func (rm *ReactionRoleManager) ButtonPanelCommand(
	ctx context.Context,
	handler InteractionHandler,
) {
	rm.renderPanel(ctx, handler, PanelTypeButton)
}

// MenuPanelCommand handles `/reactionrole-menu`.
func (rm *ReactionRoleManager) MenuPanelCommand(
	ctx context.Context,
	handler InteractionHandler,
) {
	rm.renderPanel(ctx, handler, PanelTypeMenu)
}

// renderPanel is the shared panel publishing path. Rendering a new
// panel rebinds the category to the new message; a previously sent
// panel is not retracted, but keeps working since toggle dispatch is
// stateless.
func (rm *ReactionRoleManager) renderPanel(
	ctx context.Context,
	handler InteractionHandler,
	panelType PanelType,
) {
	i := handler.GetInteraction()
	log := handler.Logger()
	options := discordInteractionOptions(i)

	category := ""
	if opt, ok := options[reactionRoleCategoryOption]; ok {
		category = strings.TrimSpace(opt.StringValue())
	}
	channelID := i.ChannelID
	if opt, ok := options[reactionRoleChannelOption]; ok {
		channelID = opt.Value.(string)
	}

	cat, err := rm.registry.Category(i.GuildID, category)
	if err != nil {
		_ = handler.Respond(
			ctx, ephemeralResponse(
				fmt.Sprintf("No reaction role category named **%s**.", category),
			),
		)
		return
	}
	if len(cat.Roles) == 0 {
		log.Warn("category has no roles", "category", category, tint.Err(ErrEmptyCategory))
		_ = handler.Respond(
			ctx, ephemeralResponse(
				fmt.Sprintf("Category **%s** has no roles yet.", category),
			),
		)
		return
	}
	if len(cat.Roles) > panelMaxRoles {
		_ = handler.Respond(
			ctx, ephemeralResponse(
				fmt.Sprintf(
					"Category **%s** has too many roles for one panel (max %d).",
					category, panelMaxRoles,
				),
			),
		)
		return
	}

	roleNames, err := rm.guildRoleNames(i.GuildID)
	if err != nil {
		log.Error("error resolving guild roles", tint.Err(err))
		_ = handler.Respond(
			ctx, ephemeralResponse("Something went wrong building the panel."),
		)
		return
	}

	bindings := sortedBindings(cat)
	var components []discordgo.MessageComponent
	if panelType == PanelTypeButton {
		components = buttonPanelComponents(bindings, roleNames)
	} else {
		components = menuPanelComponents(bindings, roleNames)
	}

	msg, err := rm.session.ChannelMessageSendComplex(
		channelID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title: fmt.Sprintf("%s Roles", category),
					Description: "Use the controls below to add or remove " +
						"roles. Selecting a role you already have removes it.",
					Color: notifyColorClaimed,
				},
			},
			Components: components,
		},
	)
	if err != nil {
		log.Error("error sending role panel", tint.Err(err), "category", category)
		_ = handler.Respond(
			ctx, ephemeralResponse("Something went wrong publishing the panel."),
		)
		return
	}

	if err = rm.registry.BindPanel(
		i.GuildID, category, channelID, msg.ID, panelType,
	); err != nil {
		log.Error("error binding role panel", tint.Err(err), "category", category)
		_ = handler.Respond(
			ctx,
			ephemeralResponse(
				"The panel was sent, but recording it failed. It may not "+
					"survive a restart.",
			),
		)
		return
	}

	log.Info(
		"published role panel",
		"category", category,
		"panel_type", panelType,
		"channel_id", channelID,
		"message_id", msg.ID,
	)
	_ = handler.Respond(
		ctx, ephemeralResponse(
			fmt.Sprintf("Published **%s** panel in <#%s>.", category, channelID),
		),
	)
}

func buttonPanelComponents(
	bindings []RoleBinding,
	roleNames map[string]string,
) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var row []discordgo.MessageComponent
	for _, b := range bindings {
		label := roleNames[b.RoleID]
		if label == "" {
			label = b.RoleID
		}
		row = append(
			row, discordgo.Button{
				Label: label,
				Style: discordgo.SecondaryButton,
				CustomID: fmt.Sprintf(
					"%s:%s:%s", customActionReactionRole, emojiKey(b.Emoji), b.RoleID,
				),
				Emoji: componentEmoji(b.Emoji),
			},
		)
		if len(row) == panelButtonsPerRow {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

func menuPanelComponents(
	bindings []RoleBinding,
	roleNames map[string]string,
) []discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(bindings))
	for _, b := range bindings {
		label := roleNames[b.RoleID]
		if label == "" {
			label = b.RoleID
		}
		options = append(
			options, discordgo.SelectMenuOption{
				Label: label,
				Value: b.RoleID,
				Emoji: componentEmoji(b.Emoji),
			},
		)
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    customIDReactionSelect,
					Placeholder: "Select a role to toggle...",
					Options:     options,
				},
			},
		},
	}
}

// ListCommand handles `/reactionrole-list`.
func (rm *ReactionRoleManager) ListCommand(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	categories := rm.registry.Categories(i.GuildID)
	if len(categories) == 0 {
		_ = handler.Respond(
			ctx, ephemeralResponse("No reaction role categories configured."),
		)
		return
	}

	names := rm.registry.CategoryNames(i.GuildID)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		cat := categories[name]
		line := fmt.Sprintf("**%s** — %d role(s)", name, len(cat.Roles))
		if cat.HasPanel() {
			line += fmt.Sprintf(
				", %s panel in <#%s>", cat.PanelType, cat.ChannelID,
			)
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
						Title:       "Reaction Role Categories",
						Description: truncate(strings.Join(lines, "\n"), 4096),
						Color:       notifyColorClaimed,
					},
				},
			},
		},
	)
	if err != nil {
		handler.Logger().Error("error listing reaction roles", tint.Err(err))
	}
}

// DeleteCommand handles `/reactionrole-delete`. The category's panel
// message, if any, is left in place; its controls stop working once the
// category is gone.
func (rm *ReactionRoleManager) DeleteCommand(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	options := discordInteractionOptions(i)
	category := ""
	if opt, ok := options[reactionRoleCategoryOption]; ok {
		category = strings.TrimSpace(opt.StringValue())
	}

	err := rm.registry.DeleteCategory(i.GuildID, category)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			_ = handler.Respond(
				ctx, ephemeralResponse(
					fmt.Sprintf("No reaction role category named **%s**.", category),
				),
			)
			return
		}
		handler.Logger().Error(
			"error deleting category", tint.Err(err), "category", category,
		)
		_ = handler.Respond(
			ctx, ephemeralResponse("Something went wrong deleting that category."),
		)
		return
	}

	handler.Logger().Info("deleted reaction role category", "category", category)
	_ = handler.Respond(
		ctx, ephemeralResponse(
			fmt.Sprintf("Deleted reaction role category **%s**.", category),
		),
	)
}

// ToggleRole flips the given role on the interacting member: adds it if
// absent, removes it if present.
func (rm *ReactionRoleManager) ToggleRole(
	ctx context.Context,
	handler InteractionHandler,
	roleID string,
) {
	i := handler.GetInteraction()
	log := handler.Logger().With("role_id", roleID)
	user := getDiscordUser(i)
	if user == nil || i.GuildID == "" {
		return
	}

	roleNames, err := rm.guildRoleNames(i.GuildID)
	if err != nil {
		log.Error("error resolving guild roles", tint.Err(err))
		_ = handler.Respond(
			ctx, ephemeralResponse("Something went wrong toggling that role."),
		)
		return
	}
	roleName, ok := roleNames[roleID]
	if !ok {
		log.Warn("panel references missing role", tint.Err(ErrRoleGone))
		_ = handler.Respond(
			ctx, ephemeralResponse("That role no longer exists."),
		)
		return
	}

	member, err := rm.session.GuildMember(i.GuildID, user.ID)
	if err != nil {
		log.Error("error fetching member", tint.Err(err))
		_ = handler.Respond(
			ctx, ephemeralResponse("Something went wrong toggling that role."),
		)
		return
	}

	hasRole := false
	for _, r := range member.Roles {
		if r == roleID {
			hasRole = true
			break
		}
	}

	if hasRole {
		err = rm.session.GuildMemberRoleRemove(i.GuildID, user.ID, roleID)
	} else {
		err = rm.session.GuildMemberRoleAdd(i.GuildID, user.ID, roleID)
	}
	if err != nil {
		log.Error("error toggling role", tint.Err(err), "had_role", hasRole)
		_ = handler.Respond(
			ctx, ephemeralResponse(
				fmt.Sprintf("I couldn't update the **%s** role for you.", roleName),
			),
		)
		return
	}

	verb := "Added"
	if hasRole {
		verb = "Removed"
	}
	log.Info("toggled role", "user_id", user.ID, "added", !hasRole)
	_ = handler.Respond(
		ctx, ephemeralResponse(fmt.Sprintf("%s the **%s** role.", verb, roleName)),
	)
}

// SelectMenuToggle handles selections from a menu panel.
func (rm *ReactionRoleManager) SelectMenuToggle(
	ctx context.Context,
	handler InteractionHandler,
) {
	i := handler.GetInteraction()
	data := i.MessageComponentData()
	if len(data.Values) == 0 {
		return
	}
	rm.ToggleRole(ctx, handler, data.Values[0])
}

// ReattachPanels verifies persisted panel bindings against Discord
// after a restart, logging any panel message that has gone missing.
// Nothing is re-registered: component dispatch is stateless, so a panel
// that still exists keeps working with no per-message wiring.
func (rm *ReactionRoleManager) ReattachPanels(ctx context.Context) {
	for _, guildID := range rm.registry.GuildIDs() {
		for name, cat := range rm.registry.Categories(guildID) {
			if !cat.HasPanel() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			_, err := rm.session.ChannelMessage(cat.ChannelID, cat.MessageID)
			if err != nil {
				rm.logger.Warn(
					"panel message missing",
					tint.Err(fmt.Errorf("%w: %w", ErrChannelUnavailable, err)),
					"guild_id", guildID,
					"category", name,
					"channel_id", cat.ChannelID,
					"message_id", cat.MessageID,
				)
				continue
			}
			rm.logger.Info(
				"reattached role panel",
				"guild_id", guildID,
				"category", name,
				"panel_type", cat.PanelType,
			)
		}
	}
}
