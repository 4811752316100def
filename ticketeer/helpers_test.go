package ticketeer

import (
	"context"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "foo", truncate("foo", 10))
	assert.Equal(t, "foo", truncate("foobar", 3))
	assert.Equal(t, "", truncate("foobar", 0))
	// multibyte runes count as one character
	assert.Equal(t, "héll", truncate("héllo", 4))
}

func TestEllipsize(t *testing.T) {
	assert.Equal(t, "foo", ellipsize("foo", 10))
	assert.Equal(t, "foo...", ellipsize("foobarbaz", 6))
	assert.Equal(t, "foo", ellipsize("foobar", 3))
}

func TestGetDiscordUser(t *testing.T) {
	user := &discordgo.User{ID: "user-1"}

	i := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{User: user},
	}
	assert.Equal(t, user, getDiscordUser(i))

	i = &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{User: user},
		},
	}
	assert.Equal(t, user, getDiscordUser(i))

	i = &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}
	assert.Nil(t, getDiscordUser(i))
}

func TestContextLogger(t *testing.T) {
	ctx := context.Background()
	_, ok := ContextLogger(ctx)
	assert.False(t, ok)

	logger := slog.Default().With("test", t.Name())
	ctx = WithLogger(ctx, logger)
	found, ok := ContextLogger(ctx)
	require.True(t, ok)
	assert.Equal(t, logger, found)
}

func TestStructToSlogValueRedactsTaggedFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Discord.Token = "super-secret-token"
	cfg.Tickets.WebhookURL = "https://discord.com/api/webhooks/secret"

	v := structToSlogValue(cfg)
	require.Equal(t, slog.KindGroup, v.Kind())

	flat := map[string]string{}
	var walk func(prefix string, attrs []slog.Attr)
	walk = func(prefix string, attrs []slog.Attr) {
		for _, attr := range attrs {
			key := prefix + attr.Key
			if attr.Value.Kind() == slog.KindGroup {
				walk(key+".", attr.Value.Group())
				continue
			}
			flat[key] = attr.Value.String()
		}
	}
	walk("", v.Group())

	assert.Equal(t, "[redacted]", flat["discord.token"])
	assert.Equal(t, "[redacted]", flat["tickets.webhook_url"])
	assert.NotContains(t, flat["discord.token"], "super-secret")
}
