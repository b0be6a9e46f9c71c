package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"counting-bot/internal/config"
	"counting-bot/internal/counting"
	"counting-bot/internal/formatting"
)

const leaderboardPageSize = 15

type BotHandler struct {
	Config *config.Config
	Engine *counting.Engine

	// BotUserID is needed for the role hierarchy check when configuring
	// the ruin role.
	BotUserID string
}

// Counting handles the /counting user command group.
func (h *BotHandler) Counting(s DiscordSession, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	sub := options[0]
	switch sub.Name {
	case "stats":
		h.stats(s, i, sub.Options)
	case "leaderboard":
		h.leaderboard(s, i)
	case "resetme":
		h.resetMe(s, i, sub.Options)
	case "setcount":
		h.setCount(s, i, sub.Options)
	case "resetcount":
		h.resetCount(s, i, sub.Options)
	}
}

func (h *BotHandler) stats(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	target := interactionUser(i)
	name := displayName(i.Member, target)

	data := i.ApplicationCommandData()
	for _, opt := range opts {
		if opt.Name == "user" && opt.UserValue(nil) != nil {
			user := opt.UserValue(nil)
			if data.Resolved != nil {
				if full, ok := data.Resolved.Users[user.ID]; ok {
					user = full
				}
			}
			target = user
			name = displayName(nil, user)
		}
	}

	if target == nil {
		return
	}
	if target.Bot {
		respond(s, i, formatting.MsgBotsCannotCount, true)
		return
	}

	rank, score, err := h.Engine.Rank(context.Background(), i.GuildID, target.ID)
	if err != nil {
		slog.Error("Failed to load stats", "guild_id", i.GuildID, "error", err)
		respond(s, i, formatting.MsgSaveError, true)
		return
	}

	if score == 0 {
		respond(s, i, fmt.Sprintf("%s has not counted yet in this server.", name), false)
		return
	}

	respond(s, i, formatting.MsgStats(name, score, rank), false)
}

func (h *BotHandler) leaderboard(s DiscordSession, i *discordgo.InteractionCreate) {
	entries, err := h.Engine.Top(context.Background(), i.GuildID, leaderboardPageSize)
	if err != nil {
		slog.Error("Failed to load leaderboard", "guild_id", i.GuildID, "error", err)
		respond(s, i, formatting.MsgSaveError, true)
		return
	}

	if len(entries) == 0 {
		respond(s, i, formatting.MsgNoCountsYet, false)
		return
	}

	var b strings.Builder
	for pos, entry := range entries {
		b.WriteString(fmt.Sprintf("%d. %s — %s\n",
			pos+1, h.resolveName(s, i.GuildID, entry.UserID), formatting.Humanize(entry.Score)))
	}

	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Counting Leaderboard",
		Description: b.String(),
		Color:       0x57F287,
	})
}

func (h *BotHandler) resetMe(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	user := interactionUser(i)
	if user == nil {
		return
	}

	score, err := h.Engine.UserScore(context.Background(), i.GuildID, user.ID)
	if err != nil {
		slog.Error("Failed to load user score", "guild_id", i.GuildID, "error", err)
		respond(s, i, formatting.MsgSaveError, true)
		return
	}
	if score == 0 {
		respond(s, i, "You don't have any counts to reset in this server.", true)
		return
	}

	if !confirmed(opts) {
		respond(s, i, fmt.Sprintf(
			"This will erase your %s counts and cannot be undone. Re-run with `confirm` set to true to proceed.",
			formatting.Humanize(score)), true)
		return
	}

	if err := h.Engine.ResetUserScore(context.Background(), i.GuildID, user.ID); err != nil {
		slog.Error("Failed to reset user score", "guild_id", i.GuildID, "error", err)
		respond(s, i, formatting.MsgSaveError, true)
		return
	}
	respond(s, i, "Your server counting stats have been reset.", false)
}

func (h *BotHandler) setCount(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	if !h.canResetCount(i) {
		respond(s, i, formatting.MsgResetDenied, true)
		return
	}

	var value int64 = -1
	for _, opt := range opts {
		if opt.Name == "value" {
			value = opt.IntValue()
		}
	}
	if value < 0 {
		respond(s, i, "Please provide a non-negative count value.", true)
		return
	}

	if !confirmed(opts) {
		respond(s, i, fmt.Sprintf(
			"This will set the count to %s. Re-run with `confirm` set to true to proceed.",
			formatting.Humanize(value)), true)
		return
	}

	if err := h.Engine.SetCount(context.Background(), i.GuildID, value); err != nil {
		slog.Error("Failed to set count", "guild_id", i.GuildID, "error", err)
		respond(s, i, formatting.MsgSaveError, true)
		return
	}
	respond(s, i, formatting.MsgCountSet(value), false)
}

func (h *BotHandler) resetCount(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	if !h.canResetCount(i) {
		respond(s, i, formatting.MsgResetDenied, true)
		return
	}

	if !confirmed(opts) {
		respond(s, i, "This will reset the count to 0. Re-run with `confirm` set to true to proceed.", true)
		return
	}

	if err := h.Engine.SetCount(context.Background(), i.GuildID, 0); err != nil {
		slog.Error("Failed to reset count", "guild_id", i.GuildID, "error", err)
		respond(s, i, formatting.MsgSaveError, true)
		return
	}
	respond(s, i, "Counting has been reset to 0.", false)
}

// canResetCount allows administrators and holders of a configured reset role.
func (h *BotHandler) canResetCount(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}

	state, err := h.Engine.State(context.Background(), i.GuildID)
	if err != nil {
		slog.Error("Failed to load guild state", "guild_id", i.GuildID, "error", err)
		return false
	}

	for _, roleID := range i.Member.Roles {
		if slices.Contains(state.Settings.ResetRoleIDs, roleID) {
			return true
		}
	}
	return false
}

func (h *BotHandler) resolveName(s DiscordSession, guildID, userID string) string {
	if member, err := s.GuildMember(guildID, userID); err == nil {
		return displayName(member, member.User)
	}
	if user, err := s.User(userID); err == nil {
		return user.Username
	}
	return "Unknown User"
}

func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user != nil {
		if user.GlobalName != "" {
			return user.GlobalName
		}
		return user.Username
	}
	return "Unknown User"
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func confirmed(opts []*discordgo.ApplicationCommandInteractionDataOption) bool {
	for _, opt := range opts {
		if opt.Name == "confirm" && opt.BoolValue() {
			return true
		}
	}
	return false
}

func respond(s DiscordSession, i *discordgo.InteractionCreate, msg string, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   flags,
		},
	})
}

func respondEmbed(s DiscordSession, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}
